// Package config provides configuration loading for scanrun.
// It supports a layered configuration approach with priority:
// CLI flags > environment variables (SCANRUN_*) > config file (~/.scanrun.yaml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds all scanrun configuration options. Only URL and OutDir are
// exposed as flags; the rest come from the environment or the config file.
type Config struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	OutDir         string        `mapstructure:"outdir" yaml:"outdir"`
	OutputFormat   string        `mapstructure:"output_format" yaml:"output_format"`
	Parallel       bool          `mapstructure:"parallel" yaml:"parallel"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	ScannerTimeout time.Duration `mapstructure:"scanner_timeout" yaml:"scanner_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Verbose        bool          `mapstructure:"verbose" yaml:"verbose"`
	SQLiMaxLinks   int           `mapstructure:"sqli_max_links" yaml:"sqli_max_links"`
	XSSMaxLinks    int           `mapstructure:"xss_max_links" yaml:"xss_max_links"`
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		OutputFormat:   "json",
		Parallel:       true,
		Concurrency:    2,
		RequestTimeout: 5 * time.Second,
		SQLiMaxLinks:   200,
		XSSMaxLinks:    50,
	}
}

// Load reads configuration from ~/.scanrun.yaml and environment variables.
// It does NOT apply CLI flag overrides; call ApplyFlags for that.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName(".scanrun")
	v.SetConfigType("yaml")

	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return decode(v)
}

// ApplyFlags overrides config values with any CLI flags that were explicitly set.
func ApplyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("url") {
		val, _ := flags.GetString("url")
		cfg.URL = val
	}
	if flags.Changed("outdir") {
		val, _ := flags.GetString("outdir")
		cfg.OutDir = val
	}
}

// Validate rejects settings no run could work with.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case "json", "table":
	default:
		return fmt.Errorf("output_format %q not supported (json, table)", c.OutputFormat)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.ScannerTimeout < 0 || c.RequestTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative, got %v", c.RateLimit)
	}
	if c.SQLiMaxLinks < 1 || c.XSSMaxLinks < 1 {
		return errors.New("max links must be at least 1")
	}
	return nil
}

// ConfigFilePath returns the default config file path (~/.scanrun.yaml).
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scanrun.yaml"
	}
	return filepath.Join(home, ".scanrun.yaml")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SCANRUN")
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("url", "")
	v.SetDefault("outdir", "")
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("scanner_timeout", d.ScannerTimeout)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("sqli_max_links", d.SQLiMaxLinks)
	v.SetDefault("xss_max_links", d.XSSMaxLinks)
}
