package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr   string // API bind address, e.g., "127.0.0.1:8080" or ":8080"
	LogDir string // logs directory

	DatabaseDriver string // "memory", "sqlite" or "postgres"
	DatabaseURL    string // DSN for postgres, file path for sqlite

	PollInterval        time.Duration // cadence of the scheduled pass; 0 disables it
	ProbeTimeout        time.Duration // per-probe outbound timeout
	MaxConcurrentChecks int           // worker bound for one pass

	PublicAPIKeys []string
	AdminAPIKeys  []string

	PublicRPM   int
	PublicBurst int
}

// FromEnv reads configuration from the environment (a local .env is picked
// up when present) and applies defaults.
func FromEnv() Config {
	_ = godotenv.Load()

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "memory"
	}

	return Config{
		Addr:                addr,
		LogDir:              logDir,
		DatabaseDriver:      driver,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		PollInterval:        envDuration("POLL_INTERVAL", 60*time.Second),
		ProbeTimeout:        envDurationMS("PROBE_TIMEOUT_MS", 10*time.Second),
		MaxConcurrentChecks: envInt("MAX_CONCURRENT_CHECKS", 8),
		PublicAPIKeys:       splitKeys(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:        splitKeys(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:           envInt("PUBLIC_RPM", 120),
		PublicBurst:         envInt("PUBLIC_BURST", 60),
	}
}

func splitKeys(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

func envDurationMS(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
