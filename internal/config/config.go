// Package config provides Viper-based configuration loading for the relay server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HTTPConfig holds the HTTP listener settings.
type HTTPConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// StaticDir is the directory of client assets served at "/".
	// Empty disables static file hosting.
	StaticDir string `mapstructure:"static_dir"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// RoomConfig holds room lifecycle settings.
type RoomConfig struct {
	// AbandonTimeout is how long a room may sit unstarted before the
	// reaper evicts it.
	AbandonTimeout time.Duration `mapstructure:"abandon_timeout"`
	// SweepInterval is the period between reaper sweeps.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// CodeLength is the number of characters in a generated room code.
	CodeLength int `mapstructure:"code_length"`
	// MaxCodeAttempts bounds code regeneration on collision.
	MaxCodeAttempts int `mapstructure:"max_code_attempts"`
}

// WebSocketConfig holds per-connection websocket settings.
type WebSocketConfig struct {
	// ReadLimit is the maximum inbound frame size in bytes.
	ReadLimit int64 `mapstructure:"read_limit"`
	// WriteWait is the per-write deadline.
	WriteWait time.Duration `mapstructure:"write_wait"`
	// PongWait is how long to wait for a pong before the connection is
	// considered dead.
	PongWait time.Duration `mapstructure:"pong_wait"`
	// PingPeriod is the interval between pings. Must be less than PongWait.
	PingPeriod time.Duration `mapstructure:"ping_period"`
	// SendBuffer is the capacity of each connection's outbound queue.
	SendBuffer int `mapstructure:"send_buffer"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Room      RoomConfig      `mapstructure:"room"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateHTTP(c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoom(c.Room); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWebSocket(c.WebSocket); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http.port must be 1-65535, got %d", h.Port)
	}
	return nil
}

func validateRoom(r RoomConfig) error {
	var errs []string
	if r.AbandonTimeout <= 0 {
		errs = append(errs, "room.abandon_timeout must be positive")
	}
	if r.SweepInterval <= 0 {
		errs = append(errs, "room.sweep_interval must be positive")
	}
	if r.CodeLength < 4 {
		errs = append(errs, fmt.Sprintf("room.code_length must be >= 4, got %d", r.CodeLength))
	}
	if r.MaxCodeAttempts < 1 {
		errs = append(errs, fmt.Sprintf("room.max_code_attempts must be >= 1, got %d", r.MaxCodeAttempts))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebSocket(w WebSocketConfig) error {
	var errs []string
	if w.ReadLimit < 1 {
		errs = append(errs, fmt.Sprintf("websocket.read_limit must be >= 1, got %d", w.ReadLimit))
	}
	if w.WriteWait <= 0 {
		errs = append(errs, "websocket.write_wait must be positive")
	}
	if w.PongWait <= 0 {
		errs = append(errs, "websocket.pong_wait must be positive")
	}
	if w.PingPeriod <= 0 {
		errs = append(errs, "websocket.ping_period must be positive")
	}
	if w.PingPeriod > 0 && w.PongWait > 0 && w.PingPeriod >= w.PongWait {
		errs = append(errs, "websocket.ping_period must be less than websocket.pong_wait")
	}
	if w.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("websocket.send_buffer must be >= 1, got %d", w.SendBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with OVERLOAD_ prefix
	v.SetEnvPrefix("OVERLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshalling defaults cannot fail; the keys are fixed.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.static_dir", "public")

	v.SetDefault("room.abandon_timeout", "10m")
	v.SetDefault("room.sweep_interval", "1m")
	v.SetDefault("room.code_length", 6)
	v.SetDefault("room.max_code_attempts", 64)

	v.SetDefault("websocket.read_limit", 64*1024)
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_period", "54s")
	v.SetDefault("websocket.send_buffer", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
