package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime knob of the bridge. Values come from
// the environment, optionally seeded from a .env file.
type Config struct {
	// Upstream KodBox account.
	KodboxBaseURL  string
	KodboxUsername string
	KodboxPassword string
	KodboxTimeout  time.Duration

	// Credentials CalDAV clients authenticate with.
	CaldavUsername string
	CaldavPassword string
	CaldavRealm    string

	// Tokens that unlock the public subscription endpoints.
	PublicTokens []string

	// HTTP listener.
	Host string
	Port int

	// Background refresh.
	SyncInterval   time.Duration
	SyncRetryDelay time.Duration
	CacheMaxAge    time.Duration

	// Timezone events are rendered in.
	DisplayTimezone string

	LogLevel slog.Level
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first, existing variables win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		KodboxBaseURL:   strings.TrimRight(getEnv("KODBOX_BASE_URL", ""), "/"),
		KodboxUsername:  getEnv("KODBOX_USERNAME", ""),
		KodboxPassword:  getEnv("KODBOX_PASSWORD", ""),
		KodboxTimeout:   getDurationEnv("KODBOX_TIMEOUT", 30*time.Second),
		CaldavUsername:  getEnv("CALDAV_USERNAME", "kodbox"),
		CaldavPassword:  getEnv("CALDAV_PASSWORD", "calendar123"),
		CaldavRealm:     getEnv("CALDAV_REALM", "KodBox CalDAV Bridge"),
		PublicTokens:    splitList(os.Getenv("CALDAV_PUBLIC_TOKENS")),
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getIntEnv("SERVER_PORT", 5082),
		SyncInterval:    getDurationEnv("SYNC_INTERVAL", 5*time.Minute),
		SyncRetryDelay:  getDurationEnv("SYNC_RETRY_DELAY", time.Minute),
		CacheMaxAge:     getDurationEnv("SYNC_CACHE_MAX_AGE", 10*time.Minute),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Asia/Shanghai"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.KodboxBaseURL == "" {
		return fmt.Errorf("KODBOX_BASE_URL is required")
	}
	parsed, err := url.Parse(c.KodboxBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("KODBOX_BASE_URL %q is not an absolute URL", c.KodboxBaseURL)
	}
	if c.KodboxUsername == "" || c.KodboxPassword == "" {
		return fmt.Errorf("KODBOX_USERNAME and KODBOX_PASSWORD are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.Port)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	return nil
}

// Addr is the host:port pair for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// getDurationEnv accepts either a Go duration string ("5m") or a bare
// number of seconds, which the original deployment files use.
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return fallback
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			out = append(out, token)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseLogLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
