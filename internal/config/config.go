// Package config loads the relay's runtime configuration from an optional
// YAML file overridden by environment variables.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envVarListenAddr      = "SIGNALING_RELAY_LISTEN_ADDR"
	envVarMode            = "SIGNALING_RELAY_MODE"
	envVarLogFormat       = "SIGNALING_RELAY_LOG_FORMAT"
	envVarLogLevel        = "SIGNALING_RELAY_LOG_LEVEL"
	envVarShutdownTimeout = "SIGNALING_RELAY_SHUTDOWN_TIMEOUT"
	envVarAllowedOrigins  = "ALLOWED_ORIGINS"

	// Room registry knobs.
	envVarMaxRooms            = "MAX_ROOMS"
	envVarCleanupOnDisconnect = "ROOM_CLEANUP_ON_DISCONNECT"

	// WebSocket gateway hardening.
	envVarMaxMessageBytes      = "MAX_SIGNALING_MESSAGE_BYTES"
	envVarMaxMessagesPerSecond = "MAX_SIGNALING_MESSAGES_PER_SECOND"
	envVarWSIdleTimeout        = "SIGNALING_WS_IDLE_TIMEOUT"
	envVarWSPingInterval       = "SIGNALING_WS_PING_INTERVAL"
)

const (
	DefaultListenAddr           = "127.0.0.1:8080"
	DefaultShutdownTimeout      = 15 * time.Second
	DefaultMode            Mode = ModeDev

	DefaultMaxMessageBytes      = int64(64 * 1024)
	DefaultMaxMessagesPerSecond = 50
	DefaultWSIdleTimeout        = 60 * time.Second
	DefaultWSPingInterval       = 20 * time.Second
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	ListenAddr      string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// AllowedOrigins is the browser Origin allowlist. Empty means same-host
	// only; "*" allows any origin.
	AllowedOrigins []string

	// MaxRooms caps active rooms. <= 0 means unlimited, which preserves the
	// protocol's no-backpressure contract.
	MaxRooms int

	// CleanupOnDisconnect removes a dropped connection's membership entries
	// (and any room it hosted). Disabling it restores the historical behavior
	// where stale connections remain routable until a send fails.
	CleanupOnDisconnect bool

	MaxMessageBytes      int64
	MaxMessagesPerSecond int
	WSIdleTimeout        time.Duration
	WSPingInterval       time.Duration
}

// Load parses command-line args (for -config) and the environment.
func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

// load takes a lookup function so tests can supply an isolated environment.
func load(lookup func(string) (string, bool), args []string) (Config, error) {
	fs := flag.NewFlagSet("signaling-relay", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to an optional YAML config file (env vars take precedence)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:      DefaultListenAddr,
		Mode:            DefaultMode,
		ShutdownTimeout: DefaultShutdownTimeout,

		CleanupOnDisconnect: true,

		MaxMessageBytes:      DefaultMaxMessageBytes,
		MaxMessagesPerSecond: DefaultMaxMessagesPerSecond,
		WSIdleTimeout:        DefaultWSIdleTimeout,
		WSPingInterval:       DefaultWSPingInterval,
	}

	var state loadState
	if *configPath != "" {
		if err := applyFile(&cfg, &state, *configPath); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, &state, lookup); err != nil {
		return Config{}, err
	}

	// Log format/level default by mode unless set explicitly.
	if cfg.LogFormat == "" {
		cfg.LogFormat = LogFormatText
		if cfg.Mode == ModeProd {
			cfg.LogFormat = LogFormatJSON
		}
	}
	if !state.logLevelSet && cfg.Mode != ModeProd {
		cfg.LogLevel = slog.LevelDebug
	}

	if cfg.WSPingInterval >= cfg.WSIdleTimeout && cfg.WSIdleTimeout > 0 {
		return Config{}, fmt.Errorf("%s (%s) must be shorter than %s (%s)",
			envVarWSPingInterval, cfg.WSPingInterval, envVarWSIdleTimeout, cfg.WSIdleTimeout)
	}

	return cfg, nil
}

// loadState tracks which settings were set explicitly (by file or env) so
// mode-dependent defaults don't clobber them.
type loadState struct {
	logLevelSet bool
}

func applyEnv(cfg *Config, state *loadState, lookup func(string) (string, bool)) error {
	cfg.ListenAddr = envOrDefault(lookup, envVarListenAddr, cfg.ListenAddr)

	if raw, ok := lookup(envVarMode); ok && raw != "" {
		mode, err := parseMode(raw)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if raw, ok := lookup(envVarLogFormat); ok && raw != "" {
		format, err := parseLogFormat(raw)
		if err != nil {
			return err
		}
		cfg.LogFormat = format
	}
	if raw, ok := lookup(envVarLogLevel); ok && raw != "" {
		level, err := parseLogLevel(raw)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
		state.logLevelSet = true
	}

	if raw, ok := lookup(envVarAllowedOrigins); ok && raw != "" {
		cfg.AllowedOrigins = splitList(raw)
	}

	var err error
	if cfg.ShutdownTimeout, err = envDurationOrDefault(lookup, envVarShutdownTimeout, cfg.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.MaxRooms, err = envIntOrDefault(lookup, envVarMaxRooms, cfg.MaxRooms); err != nil {
		return err
	}
	if cfg.CleanupOnDisconnect, err = envBoolOrDefault(lookup, envVarCleanupOnDisconnect, cfg.CleanupOnDisconnect); err != nil {
		return err
	}

	maxBytes, err := envIntOrDefault(lookup, envVarMaxMessageBytes, int(cfg.MaxMessageBytes))
	if err != nil {
		return err
	}
	cfg.MaxMessageBytes = int64(maxBytes)
	if cfg.MaxMessagesPerSecond, err = envIntOrDefault(lookup, envVarMaxMessagesPerSecond, cfg.MaxMessagesPerSecond); err != nil {
		return err
	}
	if cfg.WSIdleTimeout, err = envDurationOrDefault(lookup, envVarWSIdleTimeout, cfg.WSIdleTimeout); err != nil {
		return err
	}
	if cfg.WSPingInterval, err = envDurationOrDefault(lookup, envVarWSPingInterval, cfg.WSPingInterval); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the process logger the way the config asks for it.
func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}
	return slog.New(handler), nil
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envBoolOrDefault(lookup func(string) (string, bool), key string, fallback bool) (bool, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
