// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration knobs for the HTTP server, catalog client and persistence.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration

	CatalogBaseURL   string
	CatalogPageLimit int
	CatalogTimeout   time.Duration
	CatalogRate      float64
	CatalogBurst     int

	PersistBackend string
	StoreKey       string
	RedisURL       string
	RedisDB        int
	PersistTTL     time.Duration
	SQLitePath     string

	RateLimitPerSec float64
	RateLimitBurst  int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load reads an optional .env file and collects configuration from the environment with defaults.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv collects configuration from the environment only.
func FromEnv() Config {
	return Config{
		Port:            getenv("PORT", "8085"),
		Env:             getenv("APP_ENV", "dev"),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),

		CatalogBaseURL:   strings.TrimRight(getenv("CATALOG_BASE_URL", "https://dummyjson.com"), "/"),
		CatalogPageLimit: atoienv("CATALOG_PAGE_LIMIT", 200),
		CatalogTimeout:   durenvs("CATALOG_TIMEOUT", 10),
		CatalogRate:      floatenv("CATALOG_RATE_PER_SEC", 5),
		CatalogBurst:     atoienv("CATALOG_BURST", 10),

		PersistBackend: strings.ToLower(getenv("PERSIST_BACKEND", "sqlite")),
		StoreKey:       getenv("STORE_KEY", "product-store"),
		RedisURL:       getenv("REDIS_URL", "redis://localhost:6379"),
		RedisDB:        atoienv("REDIS_DB", 0),
		PersistTTL:     durenvs("PERSIST_TTL", 0),
		SQLitePath:     getenv("SQLITE_PATH", "storefront.db"),

		RateLimitPerSec: floatenv("RATE_LIMIT_PER_SEC", 10),
		RateLimitBurst:  atoienv("RATE_LIMIT_BURST", 20),
	}
}
