package server

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings. Zero or invalid fields are replaced by
// defaults in Sanitize.
type Config struct {
	Port           string
	AllowedOrigins []string

	// DefaultUsername and DefaultRoom fill in missing connection parameters.
	DefaultUsername string
	DefaultRoom     string

	// StaticDir, when set, is served at / instead of the built-in chat page.
	StaticDir string

	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

const (
	defaultPort            = ":8080"
	defaultUsername        = "Guest"
	defaultRoom            = "default"
	defaultPongWait        = 60 * time.Second
	defaultPingInterval    = (defaultPongWait * 9) / 10
	defaultWriteWait       = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		DefaultUsername: defaultUsername,
		DefaultRoom:     defaultRoom,
		PingInterval:    defaultPingInterval,
		PongWait:        defaultPongWait,
		WriteWait:       defaultWriteWait,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config from environment variables, after loading
// a .env file from the working directory if there is one. Unset or malformed
// variables keep their defaults.
func NewConfigFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if user := os.Getenv("DEFAULT_USERNAME"); user != "" {
		cfg.DefaultUsername = user
	}
	if name := os.Getenv("DEFAULT_ROOM"); name != "" {
		cfg.DefaultRoom = name
	}
	cfg.StaticDir = os.Getenv("STATIC_DIR")

	cfg.PingInterval = durationFromEnv("PING_INTERVAL", cfg.PingInterval)
	cfg.PongWait = durationFromEnv("PONG_WAIT", cfg.PongWait)
	cfg.WriteWait = durationFromEnv("WRITE_WAIT", cfg.WriteWait)
	cfg.ShutdownTimeout = durationFromEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	return &cfg, nil
}

// Sanitize returns a copy of cfg with defaults applied to empty fields and
// origins normalized. A ping interval that would not beat the pong deadline
// is pulled below it.
func (cfg Config) Sanitize() Config {
	out := cfg
	out.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)

	if out.Port == "" {
		out.Port = defaultPort
	}
	if !strings.Contains(out.Port, ":") {
		out.Port = ":" + out.Port
	}
	if strings.TrimSpace(out.DefaultUsername) == "" {
		out.DefaultUsername = defaultUsername
	}
	if strings.TrimSpace(out.DefaultRoom) == "" {
		out.DefaultRoom = defaultRoom
	}
	if out.PongWait <= 0 {
		out.PongWait = defaultPongWait
	}
	if out.PingInterval <= 0 || out.PingInterval >= out.PongWait {
		out.PingInterval = (out.PongWait * 9) / 10
	}
	if out.WriteWait <= 0 {
		out.WriteWait = defaultWriteWait
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = defaultShutdownTimeout
	}
	if out.LogLevel == "" {
		out.LogLevel = defaultLogLevel
	}
	if out.LogFormat == "" {
		out.LogFormat = defaultLogFormat
	}
	return out
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// durationFromEnv accepts Go durations ("30s", "1m") or a bare number of
// seconds.
func durationFromEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return parseDuration(value, defaultValue)
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
