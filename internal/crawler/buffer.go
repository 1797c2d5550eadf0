package crawler

// SourceBuffer holds the listings one extraction task collected. It is owned
// by a single goroutine and never shared until the task has finished.
type SourceBuffer struct {
	Source   Source
	listings []Listing
	seen     map[string]struct{}
}

// NewSourceBuffer creates an empty buffer for a source
func NewSourceBuffer(source Source) *SourceBuffer {
	return &SourceBuffer{
		Source: source,
		seen:   make(map[string]struct{}),
	}
}

// Add appends a listing unless one with the same link is already present
func (b *SourceBuffer) Add(listing Listing) bool {
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}
	if _, ok := b.seen[listing.Link]; ok {
		return false
	}
	b.seen[listing.Link] = struct{}{}
	listing.Source = b.Source
	b.listings = append(b.listings, listing)
	return true
}

// Listings returns the collected listings in insertion order
func (b *SourceBuffer) Listings() []Listing {
	if b == nil {
		return nil
	}
	return b.listings
}

// Len returns the number of collected listings
func (b *SourceBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.listings)
}
