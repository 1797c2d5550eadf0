package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Renderer kinds
const (
	RendererChrome = "chrome"
	RendererStatic = "static"
)

// Config represents the application configuration
type Config struct {
	// Server configuration
	ServerAddr string

	// Rendering configuration
	Renderer        string
	ChromeWSURL     string
	ChromeHeadless  bool
	ChromeProxy     string
	PageLoadTimeout time.Duration
	WaitTimeout     time.Duration

	// Engine configuration
	RequestBudget  time.Duration
	EnabledSources []string

	// URL templates for the marketplaces
	SkroutzURL       string
	VendoraURL       string
	FacebookURL      string
	FacebookLocation string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr    string
	SourceBlockTime time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		ServerAddr:           getEnv("SERVER_ADDR", ":5000"),
		Renderer:             strings.ToLower(getEnv("RENDERER", RendererChrome)),
		ChromeWSURL:          getEnv("CHROME_WS_URL", ""),
		ChromeHeadless:       getEnvBool("CHROME_HEADLESS", true),
		ChromeProxy:          getEnv("CHROME_PROXY", ""),
		PageLoadTimeout:      time.Duration(getEnvInt("PAGE_LOAD_TIMEOUT_MS", 2000)) * time.Millisecond,
		WaitTimeout:          time.Duration(getEnvInt("WAIT_TIMEOUT_MS", 1000)) * time.Millisecond,
		RequestBudget:        time.Duration(getEnvInt("REQUEST_BUDGET_SECONDS", 0)) * time.Second,
		EnabledSources:       splitList(getEnv("ENABLED_SOURCES", "skroutz,vendora,facebook")),
		SkroutzURL:           getEnv("SKROUTZ_URL", "https://www.skroutz.gr/skoop?keyphrase={term}"),
		VendoraURL:           getEnv("VENDORA_URL", "https://vendora.gr/items?q={term}&page={page}"),
		FacebookURL:          getEnv("FACEBOOK_URL", "https://www.facebook.com/marketplace/{location}/search?query={term}"),
		FacebookLocation:     getEnv("FACEBOOK_LOCATION", "athens"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "marketsearch"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		SourceBlockTime:      time.Duration(getEnvInt("SOURCE_BLOCK_SECONDS", 300)) * time.Second,
		Environment:          getEnv("MARKETSEARCH_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the application cannot start with
func (c *Config) Validate() error {
	if c.Renderer != RendererChrome && c.Renderer != RendererStatic {
		return fmt.Errorf("unknown renderer %q", c.Renderer)
	}
	if c.PageLoadTimeout <= 0 {
		return fmt.Errorf("page load timeout must be positive")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}
	if c.RequestBudget < 0 {
		return fmt.Errorf("request budget must not be negative")
	}
	if len(c.EnabledSources) == 0 {
		return fmt.Errorf("no sources enabled")
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return fmt.Errorf("redis stream count must be at least 1")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
