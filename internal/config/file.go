package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with pointer fields so an absent key leaves the
// default (or env override) untouched. Durations are strings in Go duration
// syntax ("15s", "1m").
type fileConfig struct {
	ListenAddr      *string `yaml:"listen_addr"`
	Mode            *string `yaml:"mode"`
	LogFormat       *string `yaml:"log_format"`
	LogLevel        *string `yaml:"log_level"`
	ShutdownTimeout *string `yaml:"shutdown_timeout"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	MaxRooms            *int  `yaml:"max_rooms"`
	CleanupOnDisconnect *bool `yaml:"room_cleanup_on_disconnect"`

	MaxMessageBytes      *int64  `yaml:"max_message_bytes"`
	MaxMessagesPerSecond *int    `yaml:"max_messages_per_second"`
	WSIdleTimeout        *string `yaml:"ws_idle_timeout"`
	WSPingInterval       *string `yaml:"ws_ping_interval"`
}

// applyFile overlays a YAML config file onto cfg. ${VAR} references in the
// file are expanded from the environment before parsing.
func applyFile(cfg *Config, state *loadState, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.Mode != nil {
		mode, err := parseMode(*fc.Mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if fc.LogFormat != nil {
		format, err := parseLogFormat(*fc.LogFormat)
		if err != nil {
			return err
		}
		cfg.LogFormat = format
	}
	if fc.LogLevel != nil {
		level, err := parseLogLevel(*fc.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
		state.logLevelSet = true
	}
	if fc.ShutdownTimeout != nil {
		if cfg.ShutdownTimeout, err = parseFileDuration("shutdown_timeout", *fc.ShutdownTimeout); err != nil {
			return err
		}
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.MaxRooms != nil {
		cfg.MaxRooms = *fc.MaxRooms
	}
	if fc.CleanupOnDisconnect != nil {
		cfg.CleanupOnDisconnect = *fc.CleanupOnDisconnect
	}
	if fc.MaxMessageBytes != nil {
		cfg.MaxMessageBytes = *fc.MaxMessageBytes
	}
	if fc.MaxMessagesPerSecond != nil {
		cfg.MaxMessagesPerSecond = *fc.MaxMessagesPerSecond
	}
	if fc.WSIdleTimeout != nil {
		if cfg.WSIdleTimeout, err = parseFileDuration("ws_idle_timeout", *fc.WSIdleTimeout); err != nil {
			return err
		}
	}
	if fc.WSPingInterval != nil {
		if cfg.WSPingInterval, err = parseFileDuration("ws_ping_interval", *fc.WSPingInterval); err != nil {
			return err
		}
	}
	return nil
}

func parseFileDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
