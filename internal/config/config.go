// Package config loads typefn settings with viper.
//
// Sources in increasing precedence: built-in defaults, a typefn.{toml,yaml,json}
// file (the --config path, or the working directory), then TYPEFN_* environment
// variables. CLI flags are applied on top by the caller.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/typefn/internal/errors"
)

// EnvPrefix prefixes every environment variable: TYPEFN_DB_PATH,
// TYPEFN_BACKEND_DEFAULT_CLIENT, ...
const EnvPrefix = "TYPEFN"

// Config is the resolved configuration.
type Config struct {
	DBPath   string        `mapstructure:"db_path"`
	LogLevel string        `mapstructure:"log_level"`
	LogJSON  bool          `mapstructure:"log_json"`
	Format   string        `mapstructure:"format"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Backend  BackendConfig `mapstructure:"backend"`
}

// BackendConfig configures the backend router and runtime client context.
type BackendConfig struct {
	// DefaultClient serves variants whose config names no client.
	DefaultClient string `mapstructure:"default_client"`
	// Overrides are "Function=variant" pairs applied to every call. Pairs
	// rather than a table because viper lower-cases map keys, and function
	// names are case-sensitive.
	Overrides []string `mapstructure:"overrides"`
	// Env holds "KEY=value" pairs passed to backends as the runtime context
	// environment.
	Env []string `mapstructure:"env"`
}

// OverrideMap parses Overrides.
func (b BackendConfig) OverrideMap() (map[string]string, error) {
	return pairs("backend.overrides", b.Overrides)
}

// EnvMap parses Env.
func (b BackendConfig) EnvMap() (map[string]string, error) {
	return pairs("backend.env", b.Env)
}

func pairs(key string, entries []string) (map[string]string, error) {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.WithHintf(
				errors.Newf("%s: malformed entry %q", key, e),
				"entries look like NAME=value",
			)
		}
		m[k] = strings.TrimSpace(v)
	}
	return m, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_json", false)
	v.SetDefault("format", "text")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("backend.default_client", "")
	v.SetDefault("backend.overrides", []string{})
	v.SetDefault("backend.env", []string{})
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration. An explicit path must exist; without one, a
// typefn config file in the working directory is optional.
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("typefn")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return errors.WithHint(
			errors.Newf("invalid format %q", c.Format),
			"format must be text or json",
		)
	}
	if c.Timeout < 0 {
		return errors.Newf("timeout must not be negative, got %s", c.Timeout)
	}
	if _, err := c.Backend.OverrideMap(); err != nil {
		return err
	}
	_, err := c.Backend.EnvMap()
	return err
}
