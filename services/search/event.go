package search

import (
	"encoding/json"
	"time"

	"sjsage522/marketsearch/internal/crawler"
)

// EventKey is the stream field completed searches are published under
const EventKey = "b64_search"

// Event is the published record of a completed search
type Event struct {
	RequestID   string            `json:"request_id"`
	Term        string            `json:"term"`
	MinPrice    float64           `json:"min_price"`
	MaxPrice    float64           `json:"max_price"`
	Listings    []crawler.Listing `json:"listings"`
	CompletedAt time.Time         `json:"completed_at"`
}

// NewEvent creates the event for a finished search
func NewEvent(req Request, result Result) Event {
	return Event{
		RequestID:   result.RequestID,
		Term:        req.Term,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		Listings:    result.Listings,
		CompletedAt: time.Now().UTC(),
	}
}

// Marshal encodes the event as JSON
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
