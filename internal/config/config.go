package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	DatabaseURL      string
	LogLevel         string
	AnthropicAPIKey  string
	AnthropicModel   string
	OpenAIAPIKey     string
	FallbackModel    string
	NatsURL          string
	NatsToken        string
	NotifyTimeoutSec int
}

func Load() Config {
	return Config{
		Port:             envInt("LASTWORD_PORT", 8760),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   envStr("LASTWORD_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
		FallbackModel:    envStr("LASTWORD_FALLBACK_MODEL", "gpt-4o-mini"),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		NotifyTimeoutSec: envInt("LASTWORD_NOTIFY_TIMEOUT_SECONDS", 10),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
