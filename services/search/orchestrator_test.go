package search

import (
	"context"
	"math"
	"testing"
	"time"

	"sjsage522/marketsearch/internal/crawler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laptopRequest() Request {
	return Request{Term: "laptop", MinPrice: 100, MaxPrice: 2000}
}

func TestExecuteEndToEnd(t *testing.T) {
	extractors := []crawler.Extractor{
		&MockExtractor{source: crawler.SourceSkroutz, listings: []crawler.Listing{
			listing("Laptop Lenovo", 1800, "https://www.skroutz.gr/skoop/items/1800"),
			listing("Laptop Dell", 150, "https://www.skroutz.gr/skoop/items/150"),
		}},
		&MockExtractor{source: crawler.SourceVendora, listings: []crawler.Listing{
			listing("Laptop Acer", 90, "https://vendora.gr/items/90090"),
		}},
		&MockExtractor{source: crawler.SourceFacebook, listings: []crawler.Listing{
			listing("Laptop MSI", 2500, "https://www.facebook.com/marketplace/item/2500/"),
		}},
	}

	result := NewOrchestrator(extractors, 0).Execute(context.Background(), laptopRequest())

	assert.NotEmpty(t, result.RequestID)
	require.Len(t, result.Listings, 2)
	assert.Equal(t, 150.0, result.Listings[0].Price)
	assert.Equal(t, 1800.0, result.Listings[1].Price)
	for _, l := range result.Listings {
		assert.Equal(t, crawler.SourceSkroutz, l.Source)
	}

	require.Len(t, result.Reports, 3)
	for _, report := range result.Reports {
		assert.True(t, report.Complete)
	}
	assert.Equal(t, 2, result.Reports[0].Count)
}

func TestExecuteFailureIsolation(t *testing.T) {
	extractors := []crawler.Extractor{
		&MockExtractor{source: crawler.SourceSkroutz, listings: []crawler.Listing{
			listing("Laptop Dell", 450, "https://www.skroutz.gr/skoop/items/450"),
		}},
		&MockExtractor{source: crawler.SourceVendora, panics: true, listings: []crawler.Listing{
			listing("Laptop Acer", 300, "https://vendora.gr/items/30030"),
			listing("Laptop Asus", 350, "https://vendora.gr/items/35035"),
		}},
		&MockExtractor{source: crawler.SourceFacebook, listings: []crawler.Listing{
			listing("Laptop HP", 200, "https://www.facebook.com/marketplace/item/200/"),
		}},
	}

	var result Result
	assert.NotPanics(t, func() {
		result = NewOrchestrator(extractors, 0).Execute(context.Background(), laptopRequest())
	})

	require.Len(t, result.Listings, 2)
	assert.Equal(t, crawler.SourceFacebook, result.Listings[0].Source)
	assert.Equal(t, crawler.SourceSkroutz, result.Listings[1].Source)
	assert.Equal(t, 0, result.Reports[1].Count)
}

func TestExecuteInvalidRequest(t *testing.T) {
	extractor := &MockExtractor{source: crawler.SourceSkroutz, listings: []crawler.Listing{
		listing("Laptop Dell", 450, "https://www.skroutz.gr/skoop/items/450"),
	}}
	orchestrator := NewOrchestrator([]crawler.Extractor{extractor}, 0)

	requests := []Request{
		{Term: "laptop", MinPrice: 500, MaxPrice: 100},
		{Term: "laptop", MinPrice: math.NaN(), MaxPrice: 100},
		{Term: "laptop", MinPrice: 0, MaxPrice: math.Inf(1)},
		{Term: "laptop", MinPrice: -1, MaxPrice: 100},
	}
	for _, req := range requests {
		result := orchestrator.Execute(context.Background(), req)
		assert.NotNil(t, result.Listings)
		assert.Empty(t, result.Listings)
		assert.Nil(t, result.Reports)
	}
	assert.Equal(t, int32(0), extractor.calls.Load())
}

func TestExecuteBudgetDiscardsStragglers(t *testing.T) {
	slow := &MockExtractor{source: crawler.SourceFacebook, delay: 5 * time.Second, listings: []crawler.Listing{
		listing("Laptop HP", 200, "https://www.facebook.com/marketplace/item/200/"),
	}}
	extractors := []crawler.Extractor{
		&MockExtractor{source: crawler.SourceSkroutz, listings: []crawler.Listing{
			listing("Laptop Dell", 450, "https://www.skroutz.gr/skoop/items/450"),
		}},
		slow,
	}

	start := time.Now()
	result := NewOrchestrator(extractors, 100*time.Millisecond).Execute(context.Background(), laptopRequest())

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, crawler.SourceSkroutz, result.Listings[0].Source)
	assert.True(t, result.Reports[0].Complete)
	assert.False(t, result.Reports[1].Complete)
}

func TestExecuteCancelled(t *testing.T) {
	slow := &MockExtractor{source: crawler.SourceVendora, delay: 5 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := NewOrchestrator([]crawler.Extractor{slow}, 0).Execute(ctx, laptopRequest())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, result.Listings)
}

func TestExecuteNoExtractors(t *testing.T) {
	result := NewOrchestrator(nil, 0).Execute(context.Background(), laptopRequest())
	assert.NotNil(t, result.Listings)
	assert.Empty(t, result.Listings)
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{MinPrice: 0, MaxPrice: 0}.Validate())
	assert.NoError(t, Request{MinPrice: 10, MaxPrice: 10}.Validate())
	assert.Error(t, Request{MinPrice: 11, MaxPrice: 10}.Validate())
	assert.Error(t, Request{MinPrice: 0, MaxPrice: math.NaN()}.Validate())

	assert.Equal(t, 1, Request{MaxPages: 0}.Normalized().MaxPages)
	assert.Equal(t, 1, Request{MaxPages: -3}.Normalized().MaxPages)
	assert.Equal(t, 4, Request{MaxPages: 4}.Normalized().MaxPages)
}
