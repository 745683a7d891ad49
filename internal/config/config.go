package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"NH_ENV" default:"development"`

	HTTPPort    int           `envconfig:"NH_HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"NH_HTTP_TIMEOUT" default:"15s"`

	LLMEndpoint  string `envconfig:"NH_LLM_ENDPOINT" default:"https://api.openai.com/v1"`
	LLMAPIKey    string `envconfig:"NH_LLM_API_KEY"`
	LLMModel     string `envconfig:"NH_LLM_MODEL" default:"gpt-4o-mini"`
	LLMPoolSize  int    `envconfig:"NH_LLM_POOL_SIZE" default:"4"`
	LLMMaxTokens int    `envconfig:"NH_LLM_MAX_TOKENS" default:"4096"`
	// ContextWindow bounds how much of a chunk is sent per extraction call.
	LLMContextWindow int `envconfig:"NH_LLM_CONTEXT_WINDOW" default:"128000"`

	CrawlTimeout     time.Duration `envconfig:"NH_CRAWL_TIMEOUT" default:"60s"`
	CrawlMaxBodySize int64         `envconfig:"NH_CRAWL_MAX_BODY_SIZE" default:"10485760"`
	ChunkCount       int           `envconfig:"NH_CHUNK_COUNT" default:"4"`
	// MaxConcurrentFetches bounds how many sources of one batch crawl at once.
	MaxConcurrentFetches int `envconfig:"NH_MAX_CONCURRENT_FETCHES" default:"8"`

	BusBackend string `envconfig:"NH_BUS_BACKEND" default:"memory"`
	RedisAddr  string `envconfig:"NH_REDIS_ADDR" default:"localhost:6379"`

	DBPath string `envconfig:"NH_DB_PATH" default:"./newsharvest.db"`

	ShutdownTimeout time.Duration `envconfig:"NH_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"NH_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"NH_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.LLMEndpoint == "" {
		return fmt.Errorf("LLM endpoint cannot be empty")
	}
	if c.LLMModel == "" {
		return fmt.Errorf("LLM model cannot be empty")
	}
	if c.LLMPoolSize <= 0 {
		return fmt.Errorf("LLM pool size must be positive: %d", c.LLMPoolSize)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM max tokens must be positive: %d", c.LLMMaxTokens)
	}

	if c.ChunkCount <= 0 {
		return fmt.Errorf("chunk count must be positive: %d", c.ChunkCount)
	}
	if c.CrawlMaxBodySize <= 0 {
		return fmt.Errorf("crawl max body size must be positive: %d", c.CrawlMaxBodySize)
	}
	if c.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("max concurrent fetches must be positive: %d", c.MaxConcurrentFetches)
	}

	switch c.BusBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown bus backend: %q", c.BusBackend)
	}
	if c.BusBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty when bus backend is redis")
	}

	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	return nil
}
