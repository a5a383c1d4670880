package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mood2food/storefront-client/pkg/credentials"
)

// EnvPrefix is the prefix of environment variables that override configuration
const EnvPrefix = "STOREFRONT"

// Output formats
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputTOML = "toml"
)

// HTTPConfig represents HTTP transport configuration
type HTTPConfig struct {
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// MetricsConfig represents the optional metrics endpoint
type MetricsConfig struct {
	// Addr is the address session metrics are served on; empty disables them
	Addr string `json:"addr" mapstructure:"addr"`
}

// Config represents the client configuration
type Config struct {
	// APIURL is the base address of the storefront backend
	APIURL string `json:"api_url" mapstructure:"api_url"`
	// Store selects where credentials are kept
	Store credentials.StoreConfig `json:"store" mapstructure:"store"`
	HTTP  HTTPConfig              `json:"http" mapstructure:"http"`
	Log   LogConfig               `json:"log" mapstructure:"log"`
	// Metrics exposes the session counters over HTTP while a command runs
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	// Output is the format used to print results
	Output string `json:"output" mapstructure:"output"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("store.type", "file")
	v.SetDefault("store.path", "")
	v.SetDefault("store.encryption_key_file", "")
	v.SetDefault("store.encryption_key_env", credentials.DefaultEncryptionKeyEnv)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("output", OutputJSON)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return &config
}

// DefaultConfigDir returns the directory searched for config.yaml
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "storefront")
}

// Load reads configuration into v from configFile (when set), the default
// config directory and STOREFRONT_ environment variables, then decodes it.
// Flags bound to v take precedence over all of them.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else if dir := DefaultConfigDir(); dir != "" {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for values the client cannot use
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url must use http or https, got %q", u.Scheme)
	}

	switch c.Store.Type {
	case "", "file", "memory":
	default:
		return fmt.Errorf("unknown store.type %q", c.Store.Type)
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}

	switch c.Output {
	case OutputJSON, OutputYAML, OutputTOML:
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout cannot be negative")
	}
	return nil
}
