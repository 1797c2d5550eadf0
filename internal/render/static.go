package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"sjsage522/marketsearch/helpers"
	"sjsage522/marketsearch/logger"

	"github.com/PuerkitoBio/goquery"
)

// FetchFunc fetches a URL and returns its UTF-8 body
type FetchFunc func(ctx context.Context, url string) (io.Reader, error)

// StaticRenderer serves server-rendered HTML over plain HTTP. It cannot run
// scripts, so lazy-loaded content and overlays are out of its reach.
type StaticRenderer struct {
	Fetch FetchFunc
	log   *logger.Logger
}

// NewStaticRenderer creates a renderer that fetches pages with browser-like headers
func NewStaticRenderer() *StaticRenderer {
	return &StaticRenderer{
		Fetch: helpers.FetchWithRandomHeaders,
		log:   logger.ForRenderer("static"),
	}
}

// Name returns the renderer kind
func (r *StaticRenderer) Name() string {
	return "static"
}

// NewSession opens an empty static session
func (r *StaticRenderer) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fetch := r.Fetch
	if fetch == nil {
		fetch = helpers.FetchWithRandomHeaders
	}
	log := r.log
	if log == nil {
		log = logger.ForRenderer("static")
	}
	return &staticSession{fetch: fetch, log: log}, nil
}

type staticSession struct {
	fetch FetchFunc
	log   *logger.Logger
	html  string
	doc   *goquery.Document
}

func (s *staticSession) Navigate(ctx context.Context, url string) error {
	s.html, s.doc = "", nil

	body, err := s.fetch(ctx, url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != context.Canceled {
			return fmt.Errorf("%w: %s", ErrPartialLoad, url)
		}
		return err
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}
	s.html, s.doc = string(raw), doc
	s.log.Debug().Str("url", url).Int("bytes", len(raw)).Msg("Page fetched")
	return nil
}

func (s *staticSession) WaitFor(ctx context.Context, selector string) bool {
	if s.doc == nil || ctx.Err() != nil {
		return false
	}
	return s.doc.Find(selector).Length() > 0
}

func (s *staticSession) Eval(ctx context.Context, script string, out any) error {
	return ErrUnsupported
}

func (s *staticSession) Click(ctx context.Context, selector string) error {
	return ErrUnsupported
}

func (s *staticSession) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.html, nil
}

func (s *staticSession) Close() error {
	s.html, s.doc = "", nil
	return nil
}
