package render

import (
	"context"
	"errors"
	"fmt"

	"sjsage522/marketsearch/helpers"
	"sjsage522/marketsearch/logger"

	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the chromedp renderer
type ChromeOptions struct {
	// WSURL points at a remote DevTools endpoint; empty launches a local browser
	WSURL     string
	Headless  bool
	Proxy     string
	UserAgent string
}

// ChromeRenderer renders pages in Chrome through the DevTools protocol
type ChromeRenderer struct {
	opts ChromeOptions
	log  *logger.Logger
}

// NewChromeRenderer creates a new chromedp-backed renderer
func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	if opts.UserAgent == "" {
		opts.UserAgent = helpers.RandomUserAgent()
	}
	return &ChromeRenderer{
		opts: opts,
		log:  logger.ForRenderer("chrome"),
	}
}

// Name returns the renderer kind
func (r *ChromeRenderer) Name() string {
	return "chrome"
}

// NewSession starts a browser (or attaches to the remote one) and opens a tab.
// The session lives until Close is called or ctx is cancelled.
func (r *ChromeRenderer) NewSession(ctx context.Context) (Session, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if r.opts.WSURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, r.opts.WSURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", r.opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1920, 1080),
			chromedp.UserAgent(r.opts.UserAgent),
		)
		if r.opts.Proxy != "" {
			opts = append(opts, chromedp.ProxyServer(r.opts.Proxy))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and must not carry a short deadline,
	// otherwise the browser dies with it.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	r.log.Debug().Bool("remote", r.opts.WSURL != "").Msg("Browser session opened")
	return &chromeSession{
		tabCtx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}, nil
}

type chromeSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
}

// bind derives a context from the tab that follows ctx's deadline and cancellation
func (s *chromeSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.tabCtx, deadline)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.Navigate(url))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != context.Canceled {
		return fmt.Errorf("%w: %s", ErrPartialLoad, url)
	}
	return err
}

func (s *chromeSession) WaitFor(ctx context.Context, selector string) bool {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.WaitReady(selector, chromedp.ByQuery)) == nil
}

func (s *chromeSession) Eval(ctx context.Context, script string, out any) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	if out == nil {
		var discard any
		out = &discard
	}
	return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
