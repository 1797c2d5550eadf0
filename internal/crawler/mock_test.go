package crawler

import (
	"context"
	"errors"
	"strings"
	"time"

	"sjsage522/marketsearch/internal/render"
	"sjsage522/marketsearch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

// mockRenderer hands out the same fake session every time
type mockRenderer struct {
	session  *mockSession
	err      error
	sessions int
}

func (r *mockRenderer) Name() string {
	return "mock"
}

func (r *mockRenderer) NewSession(ctx context.Context) (render.Session, error) {
	r.sessions++
	if r.err != nil {
		return nil, r.err
	}
	return r.session, nil
}

// mockSession serves canned pages keyed by URL
type mockSession struct {
	pages      map[string]string
	navErrs    map[string]error
	scripts    bool
	heights    []float64
	clickable  map[string]bool
	textClicks []string
	panicOn    string

	current   string
	height    float64
	navigated []string
	clicks    []string
	evals     []string
	closed    bool
}

func newMockSession(pages map[string]string) *mockSession {
	return &mockSession{
		pages:     pages,
		navErrs:   make(map[string]error),
		clickable: make(map[string]bool),
	}
}

func (s *mockSession) Navigate(ctx context.Context, url string) error {
	s.current = url
	s.navigated = append(s.navigated, url)
	return s.navErrs[url]
}

func (s *mockSession) WaitFor(ctx context.Context, selector string) bool {
	if s.clickable[selector] {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.pages[s.current]))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

func (s *mockSession) Eval(ctx context.Context, script string, out any) error {
	if !s.scripts {
		return render.ErrUnsupported
	}
	s.evals = append(s.evals, script)

	switch v := out.(type) {
	case *float64:
		if script == heightScript && len(s.heights) > 0 {
			s.height, s.heights = s.heights[0], s.heights[1:]
		}
		*v = s.height
	case *bool:
		for _, text := range s.textClicks {
			if strings.Contains(script, `"`+text+`"`) {
				*v = true
			}
		}
	}
	return nil
}

func (s *mockSession) Click(ctx context.Context, selector string) error {
	if !s.clickable[selector] {
		return errors.New("element not visible")
	}
	s.clicks = append(s.clicks, selector)
	return nil
}

func (s *mockSession) HTML(ctx context.Context) (string, error) {
	if s.panicOn != "" && s.current == s.panicOn {
		panic("renderer crashed")
	}
	return s.pages[s.current], nil
}

func (s *mockSession) Close() error {
	s.closed = true
	return nil
}
