package internal

import (
	"sjsage522/marketsearch/internal/render"
	"sjsage522/marketsearch/services/cache"
	"sjsage522/marketsearch/services/publisher"
)

// Dependencies holds all service dependencies. Cache and Publisher are nil
// when their backing service is not configured.
type Dependencies struct {
	Renderer  render.Renderer
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup releases the connections held by the dependencies
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
}
