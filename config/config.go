// Package config holds the runtime configuration for gopull: defaults,
// an optional YAML file, and GOPULL_-prefixed environment overrides, in
// that order of precedence (flags applied by the caller win last).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the gopull CLI.
type Config struct {
	Catalog           string        `yaml:"catalog"`
	OutputDir         string        `yaml:"output_dir"`
	Workers           int           `yaml:"workers"`
	Retries           int           `yaml:"retries"`
	Timeout           time.Duration `yaml:"-"`
	UserAgent         string        `yaml:"user_agent"`
	Referer           string        `yaml:"referer"`
	PrimaryBase       string        `yaml:"primary_base"`
	FallbackBases     []string      `yaml:"fallback_bases"`
	MaxFilenameLength int           `yaml:"max_filename_length"`
	Journal           string        `yaml:"journal"`
	Checksum          bool          `yaml:"checksum"`
}

// Default returns a Config with platform-appropriate defaults.
func Default() Config {
	return Config{
		OutputDir:         DefaultOutputDir(),
		Workers:           5,
		Retries:           3,
		Timeout:           30 * time.Second,
		UserAgent:         "gopull/1.0 batch downloader",
		MaxFilenameLength: DefaultMaxFilenameLength(),
	}
}

// yamlConfig mirrors Config with string durations for unmarshaling.
type yamlConfig struct {
	Catalog           string   `yaml:"catalog"`
	OutputDir         string   `yaml:"output_dir"`
	Workers           int      `yaml:"workers"`
	Retries           int      `yaml:"retries"`
	Timeout           string   `yaml:"timeout"`
	UserAgent         string   `yaml:"user_agent"`
	Referer           string   `yaml:"referer"`
	PrimaryBase       string   `yaml:"primary_base"`
	FallbackBases     []string `yaml:"fallback_bases"`
	MaxFilenameLength int      `yaml:"max_filename_length"`
	Journal           string   `yaml:"journal"`
	Checksum          bool     `yaml:"checksum"`
}

// LoadFromFile loads configuration from a YAML file on top of the
// defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	if yc.Catalog != "" {
		cfg.Catalog = yc.Catalog
	}
	if yc.OutputDir != "" {
		cfg.OutputDir = yc.OutputDir
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Retries != 0 {
		cfg.Retries = yc.Retries
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.Referer != "" {
		cfg.Referer = yc.Referer
	}
	if yc.PrimaryBase != "" {
		cfg.PrimaryBase = yc.PrimaryBase
	}
	if len(yc.FallbackBases) > 0 {
		cfg.FallbackBases = yc.FallbackBases
	}
	if yc.MaxFilenameLength != 0 {
		cfg.MaxFilenameLength = yc.MaxFilenameLength
	}
	if yc.Journal != "" {
		cfg.Journal = yc.Journal
	}
	cfg.Checksum = yc.Checksum

	return cfg, nil
}

// LoadFromEnv applies GOPULL_-prefixed environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GOPULL_CATALOG"); v != "" {
		c.Catalog = v
	}
	if v := os.Getenv("GOPULL_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("GOPULL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOPULL_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("GOPULL_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOPULL_RETRIES: %w", err)
		}
		c.Retries = n
	}
	if v := os.Getenv("GOPULL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse GOPULL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("GOPULL_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("GOPULL_REFERER"); v != "" {
		c.Referer = v
	}
	if v := os.Getenv("GOPULL_PRIMARY_BASE"); v != "" {
		c.PrimaryBase = v
	}
	if v := os.Getenv("GOPULL_FALLBACK_BASES"); v != "" {
		c.FallbackBases = splitList(v)
	}
	if v := os.Getenv("GOPULL_MAX_FILENAME_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOPULL_MAX_FILENAME_LENGTH: %w", err)
		}
		c.MaxFilenameLength = n
	}
	if v := os.Getenv("GOPULL_JOURNAL"); v != "" {
		c.Journal = v
	}
	if v := os.Getenv("GOPULL_CHECKSUM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse GOPULL_CHECKSUM: %w", err)
		}
		c.Checksum = b
	}
	return nil
}

// Validate checks the configuration for problems that would make a run
// impossible.
func (c *Config) Validate() error {
	if c.Catalog == "" {
		return errors.New("config: catalog is required")
	}
	if c.OutputDir == "" {
		return errors.New("config: output_dir is required")
	}
	if c.PrimaryBase == "" {
		return errors.New("config: primary_base is required")
	}
	if c.Workers < 1 {
		return errors.New("config: workers must be positive")
	}
	if c.Retries < 1 {
		return errors.New("config: retries must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
