package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"sjsage522/marketsearch/config"
	"sjsage522/marketsearch/internal"
	"sjsage522/marketsearch/internal/crawler"
	"sjsage522/marketsearch/internal/render"
	"sjsage522/marketsearch/logger"
	serrors "sjsage522/marketsearch/pkg/errors"
	"sjsage522/marketsearch/services/cache"
	"sjsage522/marketsearch/services/publisher"
	"sjsage522/marketsearch/services/search"
	"sjsage522/marketsearch/services/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	setupErr error
)

var rootCmd = &cobra.Command{
	Use:   "marketsearch",
	Short: "Search Greek second-hand marketplaces for listings in a price range",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	SilenceUsage: true,
}

// setup loads the environment, the logger and the configuration
func setup() error {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	// Load and validate configuration
	cfg = config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return serrors.NewConfiguration("invalid configuration", err)
	}
	return nil
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if serveAddr != "" {
			cfg.ServerAddr = serveAddr
		}

		deps := initializeServices(ctx, cfg)
		defer deps.Cleanup()

		orchestrator, err := newOrchestrator(cfg, deps)
		if err != nil {
			return err
		}

		logger.Default.Info().
			Str("environment", cfg.Environment).
			Str("renderer", deps.Renderer.Name()).
			Strs("sources", cfg.EnabledSources).
			Dur("request_budget", cfg.RequestBudget).
			Msg("Starting application")

		return server.New(orchestrator, deps.Publisher).ListenAndServe(ctx, cfg.ServerAddr)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term> <minPrice> <maxPrice> [maxPages]",
	Short: "Run one search and print the listings as JSON",
	Args:  cobra.ArbitraryArgs,
	// Output is always a JSON array and the exit code always zero, so callers
	// only ever parse stdout.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupErr = setup()
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		listings, err := runSearch(ctx, args)
		if err != nil {
			logger.Default.WithError(err).Error().Msg("Search failed")
			listings = []crawler.Listing{}
		}

		if err := json.NewEncoder(os.Stdout).Encode(listings); err != nil {
			logger.Default.WithError(err).Error().Msg("Failed to write listings")
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides SERVER_ADDR)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, args []string) ([]crawler.Listing, error) {
	if setupErr != nil {
		return nil, setupErr
	}
	req, err := parseSearchArgs(args)
	if err != nil {
		return nil, err
	}

	deps := initializeServices(ctx, cfg)
	defer deps.Cleanup()

	orchestrator, err := newOrchestrator(cfg, deps)
	if err != nil {
		return nil, err
	}
	return orchestrator.Execute(ctx, req).Listings, nil
}

// parseSearchArgs reads <term> <minPrice> <maxPrice> [maxPages]
func parseSearchArgs(args []string) (search.Request, error) {
	if len(args) < 3 || len(args) > 4 {
		return search.Request{}, fmt.Errorf("expected <term> <minPrice> <maxPrice> [maxPages], got %d arguments", len(args))
	}
	req := search.Request{Term: args[0], MaxPages: 1}

	var err error
	if req.MinPrice, err = strconv.ParseFloat(args[1], 64); err != nil {
		return req, fmt.Errorf("invalid minPrice %q: %w", args[1], err)
	}
	if req.MaxPrice, err = strconv.ParseFloat(args[2], 64); err != nil {
		return req, fmt.Errorf("invalid maxPrice %q: %w", args[2], err)
	}
	if len(args) == 4 {
		if req.MaxPages, err = strconv.Atoi(args[3]); err != nil {
			return req, fmt.Errorf("invalid maxPages %q: %w", args[3], err)
		}
	}
	return req, req.Validate()
}

// initializeServices builds the renderer and connects the optional cache and publisher
func initializeServices(ctx context.Context, cfg *config.Config) *internal.Dependencies {
	deps := &internal.Dependencies{
		Renderer: render.New(cfg),
	}

	if cfg.MemcacheAddr != "" {
		deps.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Using Memcache at %s for source cooldowns", cfg.MemcacheAddr)
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.ForPublisher().WithError(err).Warn().Msg("Redis unavailable, results will not be published")
			redisPublisher.Close()
		} else {
			deps.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return deps
}

func newOrchestrator(cfg *config.Config, deps *internal.Dependencies) (*search.Orchestrator, error) {
	cooldown := cache.NewCooldown(deps.Cache, cfg.SourceBlockTime)
	extractors := crawler.CreateExtractors(cfg, deps.Renderer, cooldown)
	if len(extractors) == 0 {
		return nil, fmt.Errorf("no extractors were created")
	}

	logger.Default.Info().
		Int("extractor_count", len(extractors)).
		Msg("Created extractors")

	return search.NewOrchestrator(extractors, cfg.RequestBudget), nil
}
