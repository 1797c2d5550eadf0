package search

import (
	"fmt"
	"math"

	"sjsage522/marketsearch/internal/crawler"
	serrors "sjsage522/marketsearch/pkg/errors"
)

// Request is one search across all configured marketplaces
type Request struct {
	Term     string
	MinPrice float64
	MaxPrice float64
	MaxPages int
}

// Normalized returns the request with defaults applied
func (r Request) Normalized() Request {
	if r.MaxPages < 1 {
		r.MaxPages = 1
	}
	return r
}

// Validate checks the price bounds
func (r Request) Validate() error {
	for name, bound := range map[string]float64{"minPrice": r.MinPrice, "maxPrice": r.MaxPrice} {
		if math.IsNaN(bound) || math.IsInf(bound, 0) {
			return serrors.NewValidation("", fmt.Sprintf("%s is not a number", name))
		}
		if bound < 0 {
			return serrors.NewValidation("", fmt.Sprintf("%s must not be negative", name))
		}
	}
	if r.MinPrice > r.MaxPrice {
		return serrors.NewValidation("", fmt.Sprintf("minPrice %v is above maxPrice %v", r.MinPrice, r.MaxPrice))
	}
	return nil
}

// Query converts the request into what a single extractor needs
func (r Request) Query() crawler.Query {
	return crawler.Query{
		Term:     r.Term,
		MinPrice: r.MinPrice,
		MaxPrice: r.MaxPrice,
		MaxPages: r.MaxPages,
	}
}
