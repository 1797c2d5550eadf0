// Package render provides page sessions the extractors drive: navigate,
// wait for content, run scripts, click overlays and snapshot the DOM.
package render

import (
	"context"
	"errors"

	"sjsage522/marketsearch/config"
)

var (
	// ErrPartialLoad is returned by Navigate when the page did not finish
	// loading before the deadline. Whatever loaded is still usable.
	ErrPartialLoad = errors.New("page load timed out")

	// ErrUnsupported is returned for actions a renderer cannot perform
	ErrUnsupported = errors.New("action not supported by renderer")
)

// Renderer opens isolated page sessions
type Renderer interface {
	NewSession(ctx context.Context) (Session, error)
	Name() string
}

// Session is one browsing context. Each call is bounded by the deadline of
// the context it receives; closing the session releases every resource it holds.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor reports whether selector matched before ctx expired
	WaitFor(ctx context.Context, selector string) bool
	Eval(ctx context.Context, script string, out any) error
	Click(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// New creates the renderer selected by the configuration
func New(cfg *config.Config) Renderer {
	if cfg.Renderer == config.RendererStatic {
		return NewStaticRenderer()
	}
	return NewChromeRenderer(ChromeOptions{
		WSURL:    cfg.ChromeWSURL,
		Headless: cfg.ChromeHeadless,
		Proxy:    cfg.ChromeProxy,
	})
}
