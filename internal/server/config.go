// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the linechat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection line rate
// limiting. Burst 0 disables it.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration. It is passed explicitly to New;
// nothing in this package reads a global configuration.
type Config struct {
	// TCPAddr is the listen address of the line protocol.
	TCPAddr string
	// HTTPAddr serves health, stats and the WebSocket gateway. Empty disables it.
	HTTPAddr       string
	AllowedOrigins []string
	// MaxLineBytes bounds one assembled input line.
	MaxLineBytes int
	RateLimit    RateLimitConfig
	SeedDemo     bool
	FirstUserID  int
	LogLevel     string
	LogFormat    string
}

const (
	defaultTCPAddr      = ":5000"
	defaultHTTPAddr     = ":8080"
	defaultMaxLineBytes = 4 << 20
	defaultBurst        = 50
	defaultFirstUserID  = 1000
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
)

func defaultConfig() Config {
	return Config{
		TCPAddr:  defaultTCPAddr,
		HTTPAddr: defaultHTTPAddr,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxLineBytes: defaultMaxLineBytes,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: time.Second,
		},
		SeedDemo:    true,
		FirstUserID: defaultFirstUserID,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
	}
}

// sanitized fills zero values with defaults. HTTPAddr is left alone because
// an empty value disables the HTTP listener.
func (c Config) sanitized() Config {
	if c.TCPAddr == "" {
		c.TCPAddr = defaultTCPAddr
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = defaultMaxLineBytes
	}
	// A burst of zero turns the limiter off.
	if c.RateLimit.Burst < 0 {
		c.RateLimit.Burst = 0
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	if c.FirstUserID <= 0 {
		c.FirstUserID = defaultFirstUserID
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	// SERVER_PORT is kept as an alias of CHAT_TCP_ADDR
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.TCPAddr = normalizeAddr(port)
	}
	if addr := os.Getenv("CHAT_TCP_ADDR"); addr != "" {
		cfg.TCPAddr = normalizeAddr(addr)
	}

	if addr, ok := os.LookupEnv("CHAT_HTTP_ADDR"); ok {
		cfg.HTTPAddr = normalizeAddr(strings.TrimSpace(addr))
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_LINE_BYTES"); maxSize != "" {
		cfg.MaxLineBytes = parseIntValue(maxSize, cfg.MaxLineBytes)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseNonNegativeInt(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if seed := os.Getenv("CHAT_SEED_DEMO"); seed != "" {
		cfg.SeedDemo = parseBoolValue(seed, cfg.SeedDemo)
	}

	if first := os.Getenv("CHAT_FIRST_USER_ID"); first != "" {
		cfg.FirstUserID = parseIntValue(first, cfg.FirstUserID)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	return &cfg
}

// normalizeAddr turns a bare port such as "5000" into ":5000".
func normalizeAddr(addr string) string {
	if addr == "" || strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseNonNegativeInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
		return parsed
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
