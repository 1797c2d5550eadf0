package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"sjsage522/marketsearch/logger"
	"sjsage522/marketsearch/services/publisher"
	"sjsage522/marketsearch/services/search"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Query defaults of the search endpoint
const (
	defaultMinPrice = 0
	defaultMaxPrice = 10000
	defaultMaxPages = 1
)

// Server exposes the search engine over HTTP
type Server struct {
	runner    *Runner
	publisher publisher.Publisher
	router    chi.Router
	log       *logger.Logger
}

// New creates a new server. The publisher may be nil.
func New(engine Engine, pub publisher.Publisher) *Server {
	s := &Server{
		runner:    NewRunner(engine),
		publisher: pub,
		log:       logger.ForServer(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)

	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error().Msg("Server shutdown failed")
		}
	}()

	s.log.Info().Str("addr", addr).Msg("Starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch answers with the bare listing array. Failures use the
// {"error": ...} shape and a non-200 status.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := search.Request{
		Term:     query.Get("searchTerm"),
		MinPrice: parsePrice(query.Get("minPrice"), defaultMinPrice),
		MaxPrice: parsePrice(query.Get("maxPrice"), defaultMaxPrice),
		MaxPages: parsePages(query.Get("maxPages")),
	}

	result, err := s.runner.Run(r.Context(), req)
	switch {
	case errors.Is(err, ErrSuperseded):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.log.WithError(err).Info().Msg("Search abandoned by client")
		writeError(w, http.StatusServiceUnavailable, errors.New("search cancelled"))
		return
	}

	writeJSON(w, http.StatusOK, result.Listings)
	s.publish(req, result)
}

// publish sends the result to the stream; failures are only logged
func (s *Server) publish(req search.Request, result search.Result) {
	if s.publisher == nil || req.Validate() != nil {
		return
	}
	payload, err := search.NewEvent(req, result).Marshal()
	if err != nil {
		s.log.WithError(err).Error().Msg("Failed to encode search event")
		return
	}
	if err := s.publisher.Publish(search.EventKey, payload); err != nil {
		s.log.WithError(err).Warn().Str("request_id", result.RequestID).Msg("Failed to publish search event")
		return
	}
	if err := s.publisher.TrimStreams(); err != nil {
		s.log.WithError(err).Warn().Msg("Failed to trim streams")
	}
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("%v", rec)
				s.log.WithError(err).Error().Str("path", r.URL.Path).Msg("Handler panicked")
				writeError(w, http.StatusInternalServerError, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("Request handled")
	})
}

// parsePrice returns def for an empty value and NaN for garbage, which the engine rejects
func parsePrice(value string, def float64) float64 {
	if value == "" {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parsePages(value string) int {
	pages, err := strconv.Atoi(value)
	if err != nil || pages < 1 {
		return defaultMaxPages
	}
	return pages
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
