// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default models used when a user has not chosen any.
const (
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host        string
	Port        string
	Env         string // "development", "production", "testing"
	CORSOrigins []string

	// Requests per minute per caller; zero disables the limit.
	AuthRateLimit     int
	GenerateRateLimit int

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// Bearer tokens
	JWTSecret     string
	JWTExpiration time.Duration

	// Provider defaults; per-user keys and models override these.
	GeminiKey       string
	GeminiBaseURL   string
	DeepSeekKey     string
	DeepSeekBaseURL string
	DifyKey         string
	DifyBaseURL     string
	TextModel       string
	ImageModel      string

	// Workflow polling
	WorkflowMaxPolls     int
	WorkflowPollInterval time.Duration

	// Headless browser used for rasterization
	ChromeURL           string // remote DevTools URL; empty launches a local browser
	RasterSettle        time.Duration
	RasterFallbackScale float64

	// Export hand-off
	ArchiveTTL time.Duration

	// S3-compatible object storage for published archives (optional)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3URLExpiry time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host:        envOrDefault("APP_HOST", "0.0.0.0"),
		Port:        envOrDefault("APP_PORT", "8080"),
		Env:         envOrDefault("APP_ENV", "development"),
		CORSOrigins: splitList(envOrDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "xhsstudio"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "xhsstudio"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		JWTSecret: envOrDefault("JWT_SECRET", "default-secret-key"),

		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:   os.Getenv("GEMINI_BASE_URL"),
		DeepSeekKey:     os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekBaseURL: envOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		DifyKey:         os.Getenv("DIFY_API_KEY"),
		DifyBaseURL:     envOrDefault("DIFY_BASE_URL", "https://api.dify.ai/v1"),
		TextModel:       envOrDefault("TEXT_MODEL", DefaultTextModel),
		ImageModel:      envOrDefault("IMAGE_MODEL", DefaultImageModel),

		ChromeURL: os.Getenv("CHROME_URL"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "xhsstudio-exports"),
	}

	var err error
	if cfg.ValkeyDB, err = envInt("VALKEY_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = envInt("AUTH_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.GenerateRateLimit, err = envInt("GENERATE_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.JWTExpiration, err = envDuration("JWT_EXPIRATION", "1d"); err != nil {
		return nil, err
	}
	if cfg.WorkflowMaxPolls, err = envInt("WORKFLOW_MAX_POLLS", 20); err != nil {
		return nil, err
	}
	if cfg.WorkflowPollInterval, err = envDuration("WORKFLOW_POLL_INTERVAL", "15s"); err != nil {
		return nil, err
	}
	settleMS, err := envInt("RASTER_SETTLE_MS", 200)
	if err != nil {
		return nil, err
	}
	cfg.RasterSettle = time.Duration(settleMS) * time.Millisecond
	if cfg.RasterFallbackScale, err = envFloat("RASTER_FALLBACK_SCALE", 3); err != nil {
		return nil, err
	}
	if cfg.ArchiveTTL, err = envDuration("EXPORT_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.S3URLExpiry, err = envDuration("S3_URL_EXPIRY", "1h"); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.JWTSecret == "default-secret-key" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// S3Enabled reports whether archive publishing to object storage is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDuration accepts Go durations plus a whole-day form such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
