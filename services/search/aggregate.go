package search

import (
	"cmp"
	"math"
	"slices"

	"sjsage522/marketsearch/internal/crawler"
)

// Merge combines the source buffers into one list sorted by price.
// Each listing is tagged with its buffer's source and the price range is
// enforced again here. Equal prices keep buffer order, then insertion order.
// The same item listed on two marketplaces stays as two listings.
func Merge(req Request, buffers []*crawler.SourceBuffer) []crawler.Listing {
	listings := []crawler.Listing{}
	for _, buf := range buffers {
		// Discarded sources leave a nil slot
		if buf == nil {
			continue
		}
		for _, listing := range buf.Listings() {
			if math.IsNaN(listing.Price) || math.IsInf(listing.Price, 0) {
				continue
			}
			if listing.Price < req.MinPrice || listing.Price > req.MaxPrice {
				continue
			}
			listing.Source = buf.Source
			listings = append(listings, listing)
		}
	}

	slices.SortStableFunc(listings, func(a, b crawler.Listing) int {
		return cmp.Compare(a.Price, b.Price)
	})
	return listings
}
