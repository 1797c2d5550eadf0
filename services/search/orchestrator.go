package search

import (
	"context"
	"fmt"
	"time"

	"sjsage522/marketsearch/internal/crawler"
	"sjsage522/marketsearch/logger"

	"github.com/google/uuid"
)

// SourceReport describes how one source fared in a request
type SourceReport struct {
	Source   crawler.Source
	Count    int
	Complete bool
	Duration time.Duration
}

// Result is the outcome of one search
type Result struct {
	RequestID string
	Listings  []crawler.Listing
	Reports   []SourceReport
}

// Orchestrator runs every extractor concurrently and merges what they found
type Orchestrator struct {
	extractors []crawler.Extractor
	budget     time.Duration
	log        *logger.Logger
}

// NewOrchestrator creates a new orchestrator. A positive budget caps how long
// a request waits for its sources; zero waits for all of them.
func NewOrchestrator(extractors []crawler.Extractor, budget time.Duration) *Orchestrator {
	return &Orchestrator{
		extractors: extractors,
		budget:     budget,
		log:        logger.ForOrchestrator(),
	}
}

type taskResult struct {
	index int
	buf   *crawler.SourceBuffer
	took  time.Duration
}

// Execute runs one search. It never fails: invalid requests and internal
// faults both produce an empty result.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (result Result) {
	result = Result{
		RequestID: uuid.NewString(),
		Listings:  []crawler.Listing{},
	}
	log := o.log.WithField("request_id", result.RequestID)

	defer func() {
		if r := recover(); r != nil {
			log.WithError(fmt.Errorf("panic: %v", r)).Error().Msg("Search failed")
			result.Listings = []crawler.Listing{}
			result.Reports = nil
		}
	}()

	req = req.Normalized()
	log.Info().
		Str("term", req.Term).
		Float64("min_price", req.MinPrice).
		Float64("max_price", req.MaxPrice).
		Int("max_pages", req.MaxPages).
		Msg("Search started")

	if err := req.Validate(); err != nil {
		log.WithError(err).Warn().Msg("Search rejected")
		return result
	}

	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so that tasks finishing after the budget never block
	done := make(chan taskResult, len(o.extractors))
	query := req.Query()
	for i, extractor := range o.extractors {
		go o.run(runCtx, i, extractor, query, done, log)
	}

	buffers := make([]*crawler.SourceBuffer, len(o.extractors))
	reports := make([]SourceReport, len(o.extractors))
	for i, extractor := range o.extractors {
		reports[i].Source = extractor.Source()
	}

	var budget <-chan time.Time
	if o.budget > 0 {
		timer := time.NewTimer(o.budget)
		defer timer.Stop()
		budget = timer.C
	}

wait:
	for pending := len(o.extractors); pending > 0; pending-- {
		select {
		case r := <-done:
			buffers[r.index] = r.buf
			reports[r.index].Count = r.buf.Len()
			reports[r.index].Complete = true
			reports[r.index].Duration = r.took
		case <-budget:
			log.Warn().Int("pending", pending).Dur("budget", o.budget).Msg("Request budget exhausted, discarding unfinished sources")
			break wait
		case <-ctx.Done():
			log.Info().Int("pending", pending).Msg("Search cancelled")
			break wait
		}
	}
	cancel()

	result.Listings = Merge(req, buffers)
	result.Reports = reports

	log.Info().
		Int("listings", len(result.Listings)).
		Dur("took", time.Since(start)).
		Msg("Search finished")
	return result
}

// run executes one extractor. A panic yields an empty buffer for that source only.
func (o *Orchestrator) run(ctx context.Context, index int, extractor crawler.Extractor, query crawler.Query, done chan<- taskResult, log *logger.Logger) {
	start := time.Now()
	buf := crawler.NewSourceBuffer(extractor.Source())

	defer func() {
		if r := recover(); r != nil {
			log.WithError(fmt.Errorf("panic: %v", r)).Error().Str("source", string(extractor.Source())).Msg("Source task failed")
			buf = crawler.NewSourceBuffer(extractor.Source())
		}
		done <- taskResult{index: index, buf: buf, took: time.Since(start)}
	}()

	if extracted := extractor.Extract(ctx, query); extracted != nil {
		buf = extracted
	}
}
