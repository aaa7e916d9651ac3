// Package config defines runtime settings for the Hubgate service and the
// gateway's configuration file, which doubles as the credential and proxy
// target store.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// UserRecord holds one user's salted password hash, both hex encoded.
type UserRecord struct {
	Hash string `json:"hash"`
	Salt string `json:"salt"`
}

// ProxyTarget describes one upstream API reachable through the gateway proxy.
// Headers are injected into every forwarded request and never reach the browser.
type ProxyTarget struct {
	BaseURL string            `json:"base_url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Config holds the full gateway configuration: HTTP serving parameters,
// channel limits, session signing settings, users, and proxy targets.
type Config struct {
	Addr           string
	StaticDir      string
	CertDir        string
	AllowedOrigins []string
	MaxMessageSize int64
	SendQueueSize  int
	RateLimit      RateLimitConfig

	SessionSecret string
	SessionTTL    time.Duration

	Users   map[string]UserRecord
	Proxies map[string]ProxyTarget

	// path is the file the config was loaded from, used by Save.
	path string
}

// Default returns a Config populated with development defaults.
func Default() *Config {
	return &Config{
		Addr: ":8000",
		AllowedOrigins: []string{
			"http://localhost:8000",
		},
		MaxMessageSize: 64 * 1024,
		SendQueueSize:  256,
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
		SessionTTL: 24 * time.Hour,
		Users:      make(map[string]UserRecord),
		Proxies:    make(map[string]ProxyTarget),
	}
}

// Load builds a Config by applying defaults, then overlaying values from the
// JSON file at path (if it exists) and finally from environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.sanitize()
	return cfg, nil
}

func (c *Config) sanitize() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.Users == nil {
		c.Users = make(map[string]UserRecord)
	}
	if c.Proxies == nil {
		c.Proxies = make(map[string]ProxyTarget)
	}
}

func (c *Config) applyEnv() {
	if addr := os.Getenv("HUBGATE_ADDR"); addr != "" {
		c.Addr = addr
	}
	if dir := os.Getenv("HUBGATE_STATIC_DIR"); dir != "" {
		c.StaticDir = dir
	}
	if dir := os.Getenv("HUBGATE_CERT_DIR"); dir != "" {
		c.CertDir = dir
	}
	if origins := os.Getenv("HUBGATE_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("HUBGATE_MAX_MESSAGE_SIZE"); maxSize != "" {
		c.MaxMessageSize = parseInt64Value(maxSize, c.MaxMessageSize)
	}
	if burst := os.Getenv("HUBGATE_RATE_LIMIT_BURST"); burst != "" {
		c.RateLimit.Burst = parseIntValue(burst, c.RateLimit.Burst)
	}
	if interval := os.Getenv("HUBGATE_RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		c.RateLimit.RefillInterval = parseSeconds(interval, c.RateLimit.RefillInterval)
	}
	if ttl := os.Getenv("HUBGATE_SESSION_TTL_HOURS"); ttl != "" {
		c.SessionTTL = parseHours(ttl, c.SessionTTL)
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := parts[:0]
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func parseHours(value string, defaultValue time.Duration) time.Duration {
	if hours, err := strconv.Atoi(value); err == nil && hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return defaultValue
}
