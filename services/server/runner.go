package server

import (
	"context"
	"errors"
	"sync"

	"sjsage522/marketsearch/services/search"
)

// ErrSuperseded is returned to a request whose search was replaced by a newer one
var ErrSuperseded = errors.New("search superseded by a newer request")

// Engine runs one search
type Engine interface {
	Execute(ctx context.Context, req search.Request) search.Result
}

type flight struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Runner allows a single search in flight. A new search cancels the running
// one and waits for it to wind down before it starts.
type Runner struct {
	engine Engine

	mu      sync.Mutex
	current *flight
}

// NewRunner creates a new single-flight runner
func NewRunner(engine Engine) *Runner {
	return &Runner{engine: engine}
}

// Run executes req, superseding any search still running
func (r *Runner) Run(ctx context.Context, req search.Request) (search.Result, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	current := &flight{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	previous := r.current
	r.current = current
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.current == current {
			r.current = nil
		}
		r.mu.Unlock()
		// Done only once the superseded flight is done too, so waiters see the whole chain finished
		if previous != nil {
			<-previous.done
		}
		close(current.done)
		cancel(nil)
	}()

	if previous != nil {
		previous.cancel(ErrSuperseded)
		select {
		case <-previous.done:
		case <-runCtx.Done():
		}
	}
	if runCtx.Err() != nil {
		return search.Result{}, context.Cause(runCtx)
	}

	result := r.engine.Execute(runCtx, req)
	if cause := context.Cause(runCtx); cause != nil {
		return result, cause
	}
	return result, nil
}
