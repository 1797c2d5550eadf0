package search

import (
	"context"
	"sync/atomic"
	"time"

	"sjsage522/marketsearch/internal/crawler"
)

// MockExtractor implements the crawler.Extractor interface for testing
type MockExtractor struct {
	source   crawler.Source
	listings []crawler.Listing
	delay    time.Duration
	panics   bool
	calls    atomic.Int32
}

// Ensure MockExtractor implements crawler.Extractor
var _ crawler.Extractor = (*MockExtractor)(nil)

func (m *MockExtractor) Extract(ctx context.Context, q crawler.Query) *crawler.SourceBuffer {
	m.calls.Add(1)
	buf := crawler.NewSourceBuffer(m.source)

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return buf
		}
	}

	for i, listing := range m.listings {
		if m.panics && i == 1 {
			panic("page layout changed")
		}
		buf.Add(listing)
	}
	return buf
}

func (m *MockExtractor) Source() crawler.Source {
	return m.source
}

func (m *MockExtractor) GetName() string {
	return string(m.source) + "Mock"
}

func listing(title string, price float64, link string) crawler.Listing {
	return crawler.Listing{Title: title, Price: price, Link: link}
}
