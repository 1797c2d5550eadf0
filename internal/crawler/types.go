package crawler

import (
	"context"
	"regexp"
	"time"
)

// Source identifies a marketplace
type Source string

// Supported marketplaces
const (
	SourceSkroutz  Source = "skroutz"
	SourceVendora  Source = "vendora"
	SourceFacebook Source = "facebook"
)

// Listing represents one product entry found on a marketplace
type Listing struct {
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Link     string  `json:"link"`
	Source   Source  `json:"source"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// Query is what a single extraction run looks for
type Query struct {
	Term     string
	MinPrice float64
	MaxPrice float64
	MaxPages int
}

// InRange reports whether price lies within the query bounds, inclusive
func (q Query) InRange(price float64) bool {
	return price >= q.MinPrice && price <= q.MaxPrice
}

// Extractor interface defines the contract for all marketplace extractors
type Extractor interface {
	// Extract runs one search against the marketplace. It always returns a
	// buffer, possibly empty, and never panics.
	Extract(ctx context.Context, q Query) *SourceBuffer

	// Source returns the marketplace the extractor reads
	Source() Source

	// GetName returns the extractor's name for logging and identification
	GetName() string
}

// Pagination describes how a source exposes more results
type Pagination int

const (
	// PaginationNone loads one page and scrolls through fixed steps
	PaginationNone Pagination = iota
	// PaginationPaged walks page-numbered URLs up to the requested page count
	PaginationPaged
	// PaginationInfinite scrolls until the page height stops growing
	PaginationInfinite
)

func (p Pagination) String() string {
	switch p {
	case PaginationPaged:
		return "paged"
	case PaginationInfinite:
		return "infinite"
	default:
		return "none"
	}
}

// Selectors contains CSS selectors for the elements of a results page.
// Slices are tried in order and the first non-empty match wins.
type Selectors struct {
	Ready []string
	Cards []string
	Title []string
	Price []string
	Link  []string
	Image []string

	// ItemLink matches anchors pointing at item pages anywhere in the page
	ItemLink string

	// ImageHosts restricts accepted image URLs; empty accepts any host
	ImageHosts []string
}

// Overlays lists consent and login overlays to dismiss
type Overlays struct {
	Selectors []string
	Texts     []string
}

// Scroll configures how lazy content is materialized
type Scroll struct {
	// Steps are fractions of the page height visited in order
	Steps []float64
	Pause time.Duration
	// MaxAttempts bounds the scrolls per round in infinite mode
	MaxAttempts int
}

// ImageFromIDFunc builds an image URL from an item id
type ImageFromIDFunc func(id string) string

// SourceConfig contains configuration for a marketplace extractor
type SourceConfig struct {
	Source Source
	// URL is a template with {term}, {page} and {location} placeholders
	URL      string
	BaseURL  string
	Location string

	Selectors  Selectors
	Overlays   Overlays
	Pagination Pagination
	Scroll     Scroll

	PageLoadTimeout time.Duration
	WaitTimeout     time.Duration
	OverlayTimeout  time.Duration
	ScriptTimeout   time.Duration

	// MinMatches is the count a strategy has to exceed to end the cascade
	MinMatches         int
	RequireTermInTitle bool
	ItemMarker         string

	// CacheKey names the cooldown entry set after a hard failure
	CacheKey string

	// IDPattern captures the item id from a link
	IDPattern   *regexp.Regexp
	ImageFromID ImageFromIDFunc
}
