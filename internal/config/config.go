// Package config loads server settings from an optional TOML file, a .env file and
// ROOMCHAT_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "ROOMCHAT_"

// Config holds every server setting.
type Config struct {
	HTTPAddr          string   `toml:"http_addr"`
	WSPath            string   `toml:"ws_path"`
	TCPAddr           string   `toml:"tcp_addr"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	SendBuffer        int      `toml:"send_buffer"`
	MaxMessageSize    int      `toml:"max_message_size"`
	PingInterval      Duration `toml:"ping_interval"`
	ReclaimEmptyRooms bool     `toml:"reclaim_empty_rooms"`
	LogLevel          string   `toml:"log_level"`
	LogFormat         string   `toml:"log_format"`
}

// Duration is a time.Duration written as a string such as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		WSPath:         "/ws",
		AllowedOrigins: []string{"*"},
		SendBuffer:     256,
		MaxMessageSize: 4096,
		PingInterval:   Duration{30 * time.Second},
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when path is
// empty), a .env file in the working directory if present, and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config .env parse failed: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(envPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get("WS_PATH"); ok {
		cfg.WSPath = v
	}
	if v, ok := get("TCP_ADDR"); ok {
		cfg.TCPAddr = v
	}
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v, ok := get("SEND_BUFFER"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sSEND_BUFFER: %w", envPrefix, err)
		}
		cfg.SendBuffer = n
	}
	if v, ok := get("MAX_MESSAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sMAX_MESSAGE_SIZE: %w", envPrefix, err)
		}
		cfg.MaxMessageSize = n
	}
	if v, ok := get("PING_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sPING_INTERVAL: %w", envPrefix, err)
		}
		cfg.PingInterval = Duration{d}
	}
	if v, ok := get("RECLAIM_EMPTY_ROOMS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %sRECLAIM_EMPTY_ROOMS: %w", envPrefix, err)
		}
		cfg.ReclaimEmptyRooms = b
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("config missing http_addr")
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("ws_path must start with /, got %q", c.WSPath)
	}
	if c.TCPAddr != "" && c.TCPAddr == c.HTTPAddr && !strings.HasSuffix(c.TCPAddr, ":0") {
		return fmt.Errorf("tcp_addr and http_addr must differ")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max_message_size must be positive, got %d", c.MaxMessageSize)
	}
	if c.PingInterval.Duration < 0 {
		return fmt.Errorf("ping_interval must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
