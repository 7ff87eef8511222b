// Package config loads the webflow server configuration from a YAML file.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/repository"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
)

// Config is the complete configuration of the CLI and server.
type Config struct {
	Addr      string      `yaml:"addr" validate:"required"`
	FlowsDir  string      `yaml:"flows_dir" validate:"required"`
	LogLevel  string      `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string      `yaml:"log_format" validate:"oneof=text json"`
	Store     StoreConfig `yaml:"store"`
	// MaxSnapshots per conversation; zero or less keeps every snapshot.
	MaxSnapshots          int  `yaml:"max_snapshots"`
	AlwaysRedirectOnPause bool `yaml:"always_redirect_on_pause"`
	RedirectInSameState   bool `yaml:"redirect_in_same_state"`
	// EncryptionKey is a hex encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key" validate:"omitempty,hexadecimal,len=64"`
	Metrics       bool   `yaml:"metrics"`
	// Flows holds inline definitions keyed by flow id, built next to those of FlowsDir.
	Flows map[string]string `yaml:"flows"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend" validate:"oneof=memory redis bolt"`
	Redis   RedisConfig `yaml:"redis"`
	Bolt    BoltConfig  `yaml:"bolt"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
	// LockTTL bounds how long a conversation lock survives a crashed holder.
	LockTTL time.Duration `yaml:"lock_ttl" validate:"gte=0"`
}

type BoltConfig struct {
	Path string `yaml:"path"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:         ":8080",
		FlowsDir:     ".",
		LogLevel:     "info",
		LogFormat:    "text",
		MaxSnapshots: repository.DefaultMaxSnapshots,
		Store: StoreConfig{
			Backend: StoreMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", TTL: 24 * time.Hour, LockTTL: 30 * time.Second},
			Bolt:    BoltConfig{Path: "webflow.db"},
		},
		Metrics: true,
	}
}

// Load reads path over the defaults and validates the result. An empty path returns
// the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints and the settings each store backend needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	switch c.Store.Backend {
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	case StoreBolt:
		if c.Store.Bolt.Path == "" {
			return errors.New("store.bolt.path is required for the bolt backend")
		}
	}
	return nil
}

// Level maps LogLevel onto slog.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Key decodes EncryptionKey; nil when encryption is disabled.
func (c Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	return hex.DecodeString(c.EncryptionKey)
}

// ExecutionAttributes are copied into every new flow execution.
func (c Config) ExecutionAttributes() map[string]any {
	return map[string]any{
		engine.AlwaysRedirectOnPauseAttribute: c.AlwaysRedirectOnPause,
		engine.RedirectInSameStateAttribute:   c.RedirectInSameState,
	}
}
