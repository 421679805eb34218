package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	Environment string
	ListenAddr  string
	DatabaseURL string

	RedisAddr             string
	RateLimitCapacity     int
	RateLimitRefillPerSec float64

	MaxBodyBytes int64
	IPAllowlist  []string
}

// Load reads configuration from environment variables. Development setups
// may run without Redis; production and staging require it so rate limits
// are shared across replicas.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: os.Getenv("APP_ENV"),
		ListenAddr:  getenv("API_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RateLimitCapacity:     getenvInt("RATE_LIMIT_CAPACITY", 20),
		RateLimitRefillPerSec: getenvFloat("RATE_LIMIT_REFILL_PER_SEC", 5),

		MaxBodyBytes: int64(getenvInt("API_MAX_BODY_BYTES", 1<<20)),
	}

	if raw := os.Getenv("API_IP_ALLOWLIST"); raw != "" {
		for _, cidr := range strings.Split(raw, ",") {
			if cidr = strings.TrimSpace(cidr); cidr != "" {
				cfg.IPAllowlist = append(cfg.IPAllowlist, cidr)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is complete for its environment.
func (c *Config) Validate() error {
	var missing []string

	if c.Environment == "" {
		missing = append(missing, "APP_ENV")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	if c.Environment == "production" || c.Environment == "staging" {
		if c.RedisAddr == "" {
			return errors.New("missing required environment variables for " + c.Environment + ": REDIS_ADDR")
		}
		if c.RateLimitCapacity <= 0 || c.RateLimitRefillPerSec <= 0 {
			return errors.New("rate limit settings must be positive in " + c.Environment)
		}
	}

	return nil
}

// UsesPostgres reports whether DATABASE_URL points at a Postgres server
// rather than an embedded sqlite file.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
