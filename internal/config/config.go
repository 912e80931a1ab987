package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Store file
	StorePath string

	// Edit token eviction policy
	TokenTTL         time.Duration
	MaxPendingTokens int

	// Search defaults
	FindMaxResults int

	// Outline import
	MaxImportBytes       int64
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		StorePath: envOr("ASTKEEPER_STORE_PATH", "ast_state.json"),

		TokenTTL:         envDuration("TOKEN_TTL", 15*time.Minute),
		MaxPendingTokens: envInt("MAX_PENDING_TOKENS", 256),

		FindMaxResults: envInt("FIND_MAX_RESULTS", 20),

		MaxImportBytes:       envInt64("MAX_IMPORT_BYTES", 52428800), // 50MB
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	if cfg.MaxPendingTokens <= 0 {
		cfg.MaxPendingTokens = 256
	}
	if cfg.FindMaxResults <= 0 {
		cfg.FindMaxResults = 20
	}
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = 52428800
	}

	return cfg
}

func envOr(key, fallback string) string {
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
