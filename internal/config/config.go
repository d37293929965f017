// Package config loads justpaste settings from an optional YAML file and
// JUSTPASTE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/asynkron/justpaste/internal/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// JUSTPASTE_SERVER_ADDR.
const EnvPrefix = "JUSTPASTE"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Preview PreviewConfig `mapstructure:"preview"`
	Apply   ApplyConfig   `mapstructure:"apply"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// PreviewConfig controls how comparisons are rendered.
type PreviewConfig struct {
	Width      int    `mapstructure:"width"`
	Style      string `mapstructure:"style"` // glamour style name: dark, light, notty
	SideBySide bool   `mapstructure:"side_by_side"`
}

type ApplyConfig struct {
	Concurrency int `mapstructure:"concurrency"` // documents patched at once by ApplyDocuments
}

// Option adjusts how Load resolves values.
type Option func(*viper.Viper)

// WithOverride sets key to value above every other source, before the result
// is validated. Used for command line flags.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads configuration. When file is empty the default search path is
// used and a missing file is not an error.
func Load(file string, opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("justpaste")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present. It panics if the built-in defaults do not decode
// into Config.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: built-in defaults do not decode: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 8<<20)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("preview.width", 120)
	v.SetDefault("preview.style", "dark")
	v.SetDefault("preview.side_by_side", false)
	v.SetDefault("apply.concurrency", 4)
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Preview.Width < 20 {
		return fmt.Errorf("preview.width must be at least 20, got %d", c.Preview.Width)
	}
	if c.Apply.Concurrency < 0 {
		return errors.New("apply.concurrency must not be negative")
	}
	return nil
}

// Dir returns the directory searched for justpaste.yaml.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "justpaste"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "justpaste"), nil
}
