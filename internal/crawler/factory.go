package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"sjsage522/marketsearch/config"
	"sjsage522/marketsearch/internal/render"
	"sjsage522/marketsearch/logger"
	"sjsage522/marketsearch/services/cache"
)

// CreateExtractors creates the extractors for the enabled sources, in configuration order
func CreateExtractors(cfg *config.Config, renderer render.Renderer, cooldown *cache.Cooldown) []Extractor {
	configs := SourceConfigs(cfg)

	var extractors []Extractor
	for _, name := range cfg.EnabledSources {
		sourceConfig, ok := configs[Source(name)]
		if !ok {
			logger.Warn("Unknown source %q, skipping", name)
			continue
		}
		extractors = append(extractors, NewMarketplaceExtractor(sourceConfig, renderer, cooldown))
	}

	logger.Info("Created %d extractors using the %s renderer", len(extractors), renderer.Name())
	return extractors
}

// SourceConfigs returns the configuration of every supported marketplace
func SourceConfigs(cfg *config.Config) map[Source]SourceConfig {
	return map[Source]SourceConfig{
		SourceSkroutz: {
			// Skroutz second-hand marketplace (skoop)
			Source:  SourceSkroutz,
			URL:     cfg.SkroutzURL,
			BaseURL: "https://www.skroutz.gr",
			Selectors: Selectors{
				Ready: []string{"li[class*='sku-card']", "li[class*='c2c-item-card']", "a[href*='/skoop/items/']"},
				Cards: []string{
					"li[class*='sku-card']",
					"li[class*='c2c-item-card']",
					"div[class*='card']",
					"div[class*='product-card']",
					"article[class*='card']",
					"article[class*='skoop-item']",
				},
				Title:      []string{"h2", "h3", "[class*='title']", "[class*='name']", "a.js-sku-link", "a[href*='/skoop/items/']"},
				Price:      []string{"[class*='price']", "[class*='amount']", "span"},
				Link:       []string{"a.js-sku-link", "a[href*='/skoop/items/']", "a[href*='/products/']", "a"},
				Image:      []string{"div[class*='image-container'] img", "div[class*='sku-card-pic'] img", "img"},
				ItemLink:   "a.js-sku-link, a[href*='/skoop/items/']",
				ImageHosts: []string{"scdn.gr", "skroutz.gr"},
			},
			Overlays: Overlays{
				Selectors: []string{"button[class*='accept']", "[class*='cookie-accept']"},
				Texts:     []string{"Αποδοχή όλων", "Αποδοχή"},
			},
			Pagination: PaginationNone,
			Scroll: Scroll{
				Steps: []float64{0.3, 0.6, 1.0},
				Pause: 50 * time.Millisecond,
			},
			PageLoadTimeout: cfg.PageLoadTimeout,
			WaitTimeout:     cfg.WaitTimeout,
			MinMatches:      1,
			ItemMarker:      "/items/",
			CacheKey:        "skroutz_blocked",
			IDPattern:       regexp.MustCompile(`/items/(\d+)`),
			ImageFromID:     SkroutzImageFromID,
		},
		SourceVendora: {
			Source:  SourceVendora,
			URL:     cfg.VendoraURL,
			BaseURL: "https://vendora.gr",
			Selectors: Selectors{
				Ready:    []string{`a[href*="/items/"]`},
				ItemLink: `a[href*="/items/"]`,
			},
			Overlays: Overlays{
				Texts: []string{"Αποδοχή όλων", "Αποδοχή", "Accept"},
			},
			Pagination: PaginationPaged,
			Scroll: Scroll{
				Steps: []float64{0.2, 0.4, 0.6, 0.8, 1.0},
				Pause: 300 * time.Millisecond,
			},
			PageLoadTimeout: cfg.PageLoadTimeout,
			WaitTimeout:     2 * cfg.WaitTimeout,
			ItemMarker:      "/items/",
			CacheKey:        "vendora_blocked",
			IDPattern:       regexp.MustCompile(`/items/(\d+)`),
		},
		SourceFacebook: {
			// Facebook marketplace search returns loosely matched results, hence the title filter
			Source:   SourceFacebook,
			URL:      cfg.FacebookURL,
			BaseURL:  "https://www.facebook.com",
			Location: cfg.FacebookLocation,
			Selectors: Selectors{
				Ready: []string{"div[role='feed']", "div[role='main']"},
				Cards: []string{
					"div[role='feed'] > div",
					"div[role='main'] div[data-testid='marketplace_feed_item']",
					"div.x1iorvi4",
				},
				Title:    []string{"span.x1lliihq", "div.x3ct3a4 > span"},
				Price:    []string{"span.x193iq5w", "span[data-testid='marketplace_feed_item_price']", "span[class*='x193iq5w']"},
				Link:     []string{"a[href*='/marketplace/item/']"},
				Image:    []string{"img"},
				ItemLink: "a[href*='/marketplace/item/']",
			},
			Overlays: Overlays{
				Selectors: []string{"div[aria-label='Close']", "button[data-testid*='cookie-policy']"},
				Texts:     []string{"Decline", "Απόρριψη"},
			},
			Pagination: PaginationInfinite,
			Scroll: Scroll{
				Pause:       time.Second,
				MaxAttempts: 3,
			},
			PageLoadTimeout:    cfg.PageLoadTimeout,
			WaitTimeout:        2 * cfg.WaitTimeout,
			RequireTermInTitle: true,
			ItemMarker:         "/marketplace/item/",
			CacheKey:           "facebook_blocked",
			IDPattern:          regexp.MustCompile(`/marketplace/item/(\d+)`),
		},
	}
}

// SkroutzImageFromID builds the thumbnail URL skroutz serves for a second-hand item.
// Images are spread over three hosts by item id.
func SkroutzImageFromID(id string) string {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return ""
	}
	host := [...]string{"a", "b", "c"}[n%3]
	return fmt.Sprintf("https://%s.scdn.gr/ds/c2c/item_images/h-%s/thumbnail_recent.jpeg", host, id)
}
