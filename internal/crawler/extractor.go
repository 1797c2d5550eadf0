package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sjsage522/marketsearch/helpers"
	"sjsage522/marketsearch/internal/link"
	"sjsage522/marketsearch/internal/price"
	"sjsage522/marketsearch/internal/render"
	"sjsage522/marketsearch/logger"
	serrors "sjsage522/marketsearch/pkg/errors"
	"sjsage522/marketsearch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

const maxTitleLength = 200

// Default per-source timings
const (
	defaultPageLoadTimeout = 2 * time.Second
	defaultWaitTimeout     = time.Second
	defaultOverlayTimeout  = 500 * time.Millisecond
	defaultScriptTimeout   = time.Second
	defaultMaxAttempts     = 3
)

const (
	scrollToScript = `window.scrollTo(0, document.body.scrollHeight * %g); document.body.scrollHeight`
	heightScript   = `document.body.scrollHeight`
	clickTextJS    = `(() => {
	const text = %s;
	for (const el of document.querySelectorAll('button, [role="button"], a')) {
		if ((el.textContent || '').trim().includes(text)) { el.click(); return true; }
	}
	return false;
})()`
)

// MarketplaceExtractor extracts listings from one marketplace driven by its SourceConfig
type MarketplaceExtractor struct {
	config    SourceConfig
	renderer  render.Renderer
	cooldown  *cache.Cooldown
	validator *link.Validator
	log       *logger.Logger
}

// NewMarketplaceExtractor creates a new extractor, filling unset timings with defaults
func NewMarketplaceExtractor(config SourceConfig, renderer render.Renderer, cooldown *cache.Cooldown) *MarketplaceExtractor {
	if config.PageLoadTimeout <= 0 {
		config.PageLoadTimeout = defaultPageLoadTimeout
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = defaultWaitTimeout
	}
	if config.OverlayTimeout <= 0 {
		config.OverlayTimeout = defaultOverlayTimeout
	}
	if config.ScriptTimeout <= 0 {
		config.ScriptTimeout = defaultScriptTimeout
	}
	if config.Scroll.MaxAttempts <= 0 {
		config.Scroll.MaxAttempts = defaultMaxAttempts
	}

	return &MarketplaceExtractor{
		config:    config,
		renderer:  renderer,
		cooldown:  cooldown,
		validator: link.NewValidator(config.ItemMarker),
		log:       logger.ForSource(string(config.Source)),
	}
}

// Source returns the marketplace the extractor reads
func (e *MarketplaceExtractor) Source() Source {
	return e.config.Source
}

// GetName returns the extractor's name for logging
func (e *MarketplaceExtractor) GetName() string {
	return string(e.config.Source) + "Extractor"
}

// Extract runs one search. Faults stop the run and whatever was collected so
// far is returned.
func (e *MarketplaceExtractor) Extract(ctx context.Context, q Query) (buf *SourceBuffer) {
	buf = NewSourceBuffer(e.config.Source)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := serrors.NewExtraction(string(e.config.Source), "extraction aborted", fmt.Errorf("panic: %v", r))
			e.log.WithError(err).Error().Int("partial", buf.Len()).Msg("Recovered from panic")
		}
	}()

	if e.cooldown.Active(e.config.CacheKey) {
		err := serrors.NewRateLimit(string(e.config.Source), e.cooldown.TTL())
		e.log.WithError(err).Warn().Msg("Skipping source")
		return buf
	}

	session, err := e.renderer.NewSession(ctx)
	if err != nil {
		e.fail(serrors.NewRender(string(e.config.Source), "failed to open session", err))
		return buf
	}
	defer session.Close()

	for page, pageURL := range e.pageURLs(q) {
		if ctx.Err() != nil {
			break
		}

		if err := e.navigate(ctx, session, pageURL); err != nil {
			if page == 0 {
				e.fail(serrors.NewNavigation(string(e.config.Source), "failed to load "+pageURL, err))
			} else {
				e.log.WithError(err).Warn().Int("page", page+1).Msg("Stopping pagination")
			}
			break
		}

		e.waitReady(ctx, session)
		e.dismissOverlays(ctx, session)
		e.materialize(ctx, session, q)

		doc, err := e.snapshot(ctx, session)
		if err != nil {
			e.log.WithError(err).Warn().Int("page", page+1).Msg("Failed to snapshot page")
			break
		}

		outcome := RunCascade(doc, e.strategies(), e.config.MinMatches)
		added := e.collect(outcome.Candidates, q, pageURL, buf)
		e.log.Debug().
			Int("page", page+1).
			Str("strategy", outcome.Name).
			Int("candidates", outcome.Count).
			Int("added", added).
			Msg("Page processed")

		// An empty page means we ran past the last one
		if outcome.Count == 0 {
			break
		}
	}

	e.log.Info().
		Int("listings", buf.Len()).
		Dur("took", time.Since(start)).
		Msg("Extraction finished")
	return buf
}

// pageURLs builds the URLs to visit. Only paged sources visit more than one.
func (e *MarketplaceExtractor) pageURLs(q Query) []string {
	pages := 1
	if e.config.Pagination == PaginationPaged && q.MaxPages > 1 {
		pages = q.MaxPages
	}

	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		urls = append(urls, BuildURL(e.config.URL, q.Term, e.config.Location, page))
	}
	return urls
}

// BuildURL fills a URL template with the escaped term, location and page number
func BuildURL(template, term, location string, page int) string {
	return strings.NewReplacer(
		"{term}", url.QueryEscape(strings.TrimSpace(term)),
		"{location}", url.PathEscape(location),
		"{page}", strconv.Itoa(page),
	).Replace(template)
}

func (e *MarketplaceExtractor) navigate(ctx context.Context, session render.Session, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, e.config.PageLoadTimeout)
	defer cancel()

	err := session.Navigate(navCtx, pageURL)
	if errors.Is(err, render.ErrPartialLoad) {
		e.log.Debug().Str("url", pageURL).Msg("Page load timed out, continuing with partial content")
		return nil
	}
	return err
}

// waitReady waits for any of the ready selectors; not finding one is fine
func (e *MarketplaceExtractor) waitReady(ctx context.Context, session render.Session) {
	if len(e.config.Selectors.Ready) == 0 {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.config.WaitTimeout)
	defer cancel()

	if !session.WaitFor(waitCtx, strings.Join(e.config.Selectors.Ready, ", ")) {
		e.log.Debug().Msg("Ready selectors not found before timeout")
	}
}

// dismissOverlays clicks the first overlay control it can find, by selector then by text
func (e *MarketplaceExtractor) dismissOverlays(ctx context.Context, session render.Session) bool {
	for _, selector := range e.config.Overlays.Selectors {
		if e.tryClick(ctx, session, selector) {
			e.log.Debug().Str("selector", selector).Msg("Overlay dismissed")
			return true
		}
	}

	for _, text := range e.config.Overlays.Texts {
		literal, _ := json.Marshal(text)
		var clicked bool
		if err := e.eval(ctx, session, fmt.Sprintf(clickTextJS, literal), &clicked); err != nil {
			if errors.Is(err, render.ErrUnsupported) {
				return false
			}
			continue
		}
		if clicked {
			e.log.Debug().Str("text", text).Msg("Overlay dismissed")
			return true
		}
	}
	return false
}

func (e *MarketplaceExtractor) tryClick(ctx context.Context, session render.Session, selector string) bool {
	clickCtx, cancel := context.WithTimeout(ctx, e.config.OverlayTimeout)
	defer cancel()

	if !session.WaitFor(clickCtx, selector) {
		return false
	}
	return session.Click(clickCtx, selector) == nil
}

// materialize forces lazy content into the DOM according to the pagination mode
func (e *MarketplaceExtractor) materialize(ctx context.Context, session render.Session, q Query) {
	if e.config.Pagination == PaginationInfinite {
		rounds := max(q.MaxPages, 1)
		e.scrollUntilStable(ctx, session, rounds*e.config.Scroll.MaxAttempts)
		return
	}
	e.scrollSteps(ctx, session)
}

// scrollSteps visits fixed fractions of the page height with short pauses
func (e *MarketplaceExtractor) scrollSteps(ctx context.Context, session render.Session) {
	for _, step := range e.config.Scroll.Steps {
		var height float64
		if err := e.eval(ctx, session, fmt.Sprintf(scrollToScript, step), &height); err != nil {
			if !errors.Is(err, render.ErrUnsupported) {
				e.log.WithError(err).Debug().Float64("step", step).Msg("Scroll failed")
			}
			return
		}
		if !sleep(ctx, e.config.Scroll.Pause) {
			return
		}
	}
}

// scrollUntilStable scrolls to the bottom until the height stops growing for
// two consecutive attempts or the attempts run out. It returns the attempts made.
func (e *MarketplaceExtractor) scrollUntilStable(ctx context.Context, session render.Session, maxAttempts int) int {
	var last float64
	if err := e.eval(ctx, session, heightScript, &last); err != nil {
		return 0
	}

	stale := 0
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		if err := e.eval(ctx, session, fmt.Sprintf(scrollToScript, 1.0), nil); err != nil {
			break
		}
		if !sleep(ctx, e.config.Scroll.Pause) {
			break
		}

		var height float64
		if err := e.eval(ctx, session, heightScript, &height); err != nil {
			break
		}
		if height <= last {
			stale++
			if stale >= 2 {
				break
			}
		} else {
			stale = 0
			last = height
		}
	}
	e.log.Debug().Int("attempts", attempts).Float64("height", last).Msg("Infinite scroll finished")
	return attempts
}

func (e *MarketplaceExtractor) eval(ctx context.Context, session render.Session, script string, out any) error {
	evalCtx, cancel := context.WithTimeout(ctx, e.config.ScriptTimeout)
	defer cancel()
	return session.Eval(evalCtx, script, out)
}

func (e *MarketplaceExtractor) snapshot(ctx context.Context, session render.Session) (*goquery.Document, error) {
	snapCtx, cancel := context.WithTimeout(ctx, e.config.ScriptTimeout)
	defer cancel()

	html, err := session.HTML(snapCtx)
	if err != nil {
		return nil, serrors.NewRender(string(e.config.Source), "failed to snapshot DOM", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, serrors.NewParsing(string(e.config.Source), "failed to parse DOM", err)
	}
	return doc, nil
}

// collect validates candidates and adds the survivors to the buffer
func (e *MarketplaceExtractor) collect(candidates []Candidate, q Query, pageURL string, buf *SourceBuffer) int {
	base := e.config.BaseURL
	if base == "" {
		base = helpers.Origin(pageURL)
	}

	added := 0
	for _, c := range candidates {
		listing, ok := e.toListing(c, q, base)
		if !ok {
			continue
		}
		if buf.Add(listing) {
			added++
		}
	}
	return added
}

// toListing normalizes a candidate and applies every per-candidate filter
func (e *MarketplaceExtractor) toListing(c Candidate, q Query, base string) (Listing, bool) {
	title := truncate(cleanText(c.Title), maxTitleLength)
	itemURL := helpers.ResolveURL(base, c.Link)
	if title == "" || itemURL == "" {
		return Listing{}, false
	}

	if e.config.RequireTermInTitle && !strings.Contains(strings.ToLower(title), strings.ToLower(strings.TrimSpace(q.Term))) {
		return Listing{}, false
	}
	if !e.validator.IsValidItemLink(itemURL) {
		return Listing{}, false
	}

	value, ok := price.Parse(c.PriceText)
	if !ok || !q.InRange(value) {
		return Listing{}, false
	}

	image := helpers.ResolveURL(base, c.Image)
	if image == "" && e.config.ImageFromID != nil {
		if id := e.itemID(itemURL); id != "" {
			image = e.config.ImageFromID(id)
		}
	}

	return Listing{
		Title:    title,
		Price:    value,
		Link:     itemURL,
		Source:   e.config.Source,
		ImageURL: image,
	}, true
}

// fail logs a hard failure and starts the source cooldown. Cancellation is not a failure.
func (e *MarketplaceExtractor) fail(err error) {
	if errors.Is(err, context.Canceled) {
		e.log.WithError(err).Info().Msg("Extraction cancelled")
		return
	}
	if errors.Is(err, helpers.ErrRateLimited) {
		limited := serrors.NewRateLimit(string(e.config.Source), e.cooldown.TTL())
		e.log.WithError(err).Warn().Msg("Source is throttling requests")
		e.cooldown.Start(e.config.CacheKey, limited.Error())
		return
	}
	e.log.WithError(err).Error().Msg("Extraction failed")
	e.cooldown.Start(e.config.CacheKey, err.Error())
}

// sleep pauses for d unless ctx ends first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
