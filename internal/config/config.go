package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port      int
	NatsURL   string
	NatsToken string
	LogLevel  string
	APIToken  string

	OutputDir string
	Strategy  string
	MaxTokens int
	Workers   int
	Overflow  string // "allow" or "reject"
}

func Load() Config {
	return Config{
		Port:      envInt("TOTALRECALL_PORT", 8760),
		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		APIToken:  envStr("TOTALRECALL_API_TOKEN", ""),
		OutputDir: envStr("TOTALRECALL_OUTPUT_DIR", "~/.total_recall/memory/processed"),
		Strategy:  envStr("TOTALRECALL_STRATEGY", "size"),
		MaxTokens: envInt("TOTALRECALL_MAX_TOKENS", 1500),
		Workers:   envInt("TOTALRECALL_WORKERS", 4),
		Overflow:  envStr("TOTALRECALL_OVERFLOW", "allow"),
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
