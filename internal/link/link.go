package link

import (
	"net/url"
	"strings"
)

// DefaultExcluded lists URL fragments that point at account, navigation or
// checkout pages rather than individual listings
var DefaultExcluded = []string{
	"/user/items/boosts",
	"/items/create",
	"/user/items/",
	"/search",
	"/account",
	"/login",
	"/register",
	"/category/",
	"/cart",
	"/checkout",
}

// DefaultMinSegmentLen is the shortest accepted final path segment
const DefaultMinSegmentLen = 3

// Validator decides whether a URL identifies a single item page
type Validator struct {
	// Marker is the path fragment every item URL carries, e.g. "/items/"
	Marker        string
	Excluded      []string
	MinSegmentLen int
}

// NewValidator creates a validator with the default exclusions for the given item marker
func NewValidator(marker string) *Validator {
	return &Validator{
		Marker:        marker,
		Excluded:      DefaultExcluded,
		MinSegmentLen: DefaultMinSegmentLen,
	}
}

// IsValidItemLink reports whether rawURL looks like a listing detail page
func (v *Validator) IsValidItemLink(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	for _, pattern := range v.Excluded {
		if strings.Contains(rawURL, pattern) {
			return false
		}
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	if v.Marker != "" && !strings.Contains(path+"/", v.Marker) {
		return false
	}
	path = strings.TrimRight(path, "/")

	// Bare listing index, e.g. ".../items" or ".../items/"
	if v.Marker != "" && strings.HasSuffix(path+"/", v.Marker) {
		return false
	}

	segment := path[strings.LastIndex(path, "/")+1:]
	minLen := v.MinSegmentLen
	if minLen <= 0 {
		minLen = DefaultMinSegmentLen
	}
	return len(segment) >= minLen
}
