// Package config loads service configuration in three layers: built-in
// defaults, an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/clubmap/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Log         LogConfig         `koanf:"log"`
	Database    DatabaseConfig    `koanf:"database"`
	Roster      RosterConfig      `koanf:"roster"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Sessions    SessionConfig     `koanf:"sessions"`
}

type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type RosterConfig struct {
	// Path to a roster YAML file. Empty uses the built-in roster.
	Path string `koanf:"path"`
}

type PersistenceConfig struct {
	SaveQueueSize   int           `koanf:"save_queue_size"`
	SaveTimeout     time.Duration `koanf:"save_timeout"`
	SeedOnStart     bool          `koanf:"seed_on_start"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:           ":8081",
			RequestTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Persistence: PersistenceConfig{
			SaveQueueSize:   256,
			SaveTimeout:     5 * time.Second,
			SeedOnStart:     true,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Sessions: SessionConfig{TTL: 2 * time.Hour},
	}
}

// envMappings maps the flat environment variable names to config paths.
var envMappings = map[string]string{
	"http_addr":        "http.addr",
	"request_timeout":  "http.request_timeout",
	"log_level":        "log.level",
	"database_url":     "database.url",
	"roster_path":      "roster.path",
	"save_queue_size":  "persistence.save_queue_size",
	"save_timeout":     "persistence.save_timeout",
	"seed_on_start":    "persistence.seed_on_start",
	"breaker_failures": "persistence.breaker_failures",
	"breaker_cooldown": "persistence.breaker_cooldown",
	"session_ttl":      "sessions.ttl",
}

func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	// Unknown variables are dropped.
	return ""
}

// Load reads configuration with precedence env > file > defaults.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr must be set"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	if c.Persistence.SaveQueueSize <= 0 {
		errs = append(errs, errors.New("persistence.save_queue_size must be positive"))
	}
	if c.Persistence.SaveTimeout <= 0 {
		errs = append(errs, errors.New("persistence.save_timeout must be positive"))
	}
	if c.Sessions.TTL <= 0 {
		errs = append(errs, errors.New("sessions.ttl must be positive"))
	}
	return errors.Join(errs...)
}
