// Package config loads process configuration: a .env file (if present,
// via godotenv) plus typed accessors over the documented environment
// variables.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the current working directory if one
// exists. A missing file is not an error — the process continues with
// whatever environment variables the caller already has set.
func LoadEnv() {
	path := filepath.Join(".", ".env")
	if _, err := os.Stat(path); err != nil {
		log.Printf("[config] no .env file found, using system environment variables")
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("[config] failed to load .env: %v", err)
		return
	}
	log.Printf("[config] loaded .env from %s", path)
}

// Config is the resolved set of process-wide settings the rest of the
// program reads once at startup.
type Config struct {
	SessionTimeout         time.Duration
	SessionCleanupInterval time.Duration
	CORSOrigins            []string
	LogLevel               string
	Debug                  bool
	PersonasDir            string
	PersonaTolerateMissing bool
	ToolServersFile        string
}

// Load resolves Config from the environment, applying the documented
// defaults: 24h session timeout, 6h cleanup interval.
func Load() Config {
	return Config{
		SessionTimeout:         durationHours("APP_SESSION_TIMEOUT_HOURS", 24),
		SessionCleanupInterval: durationHours("APP_SESSION_CLEANUP_INTERVAL_HOURS", 6),
		CORSOrigins:            splitCSV(os.Getenv("APP_CORS_ORIGINS")),
		LogLevel:               envOr("APP_LOG_LEVEL", "info"),
		Debug:                  boolEnv("APP_DEBUG"),
		PersonasDir:            os.Getenv("PERSONAS_DIR"),
		PersonaTolerateMissing: boolEnv("PERSONA_TOLERATE_MISSING"),
		ToolServersFile:        os.Getenv("TOOL_SERVERS_FILE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationHours(key string, fallbackHours int) time.Duration {
	hours := fallbackHours
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			hours = n
		} else {
			log.Printf("[config] invalid %s=%q, using default %dh", key, raw, fallbackHours)
		}
	}
	return time.Duration(hours) * time.Hour
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
