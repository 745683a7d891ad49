package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		HTTPPort:         8080,
		LLMEndpoint:      "https://api.openai.com/v1",
		LLMModel:         "gpt-4o-mini",
		LLMPoolSize:      4,
		LLMMaxTokens:     4096,
		ChunkCount:       4,
		CrawlMaxBodySize: 1 << 20,
		BusBackend:       "memory",
		DBPath:           "./test.db",

		MaxConcurrentFetches: 8,
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.LLMEndpoint = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.LLMModel = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.LLMPoolSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BusBackend = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BusBackend = "redis"
	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.HTTPPort = -1
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.MaxConcurrentFetches = 0
	assert.Error(t, cfg.Validate())
}
