// Package config loads back-office settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/fetch"
)

// Config holds the back-office configuration
type Config struct {
	APIURL    string `yaml:"api_url"`
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// RequestTimeout bounds calls to the API. Zero leaves it to the transport.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// FetchWait is how long a page waits for data before rendering its loading state.
	FetchWait      time.Duration `yaml:"fetch_wait"`
	DedupeInterval time.Duration `yaml:"dedupe_interval"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		APIURL:         apiclient.DefaultBaseURL,
		Port:           "8888",
		LogLevel:       "info",
		LogFormat:      "text",
		FetchWait:      3 * time.Second,
		DedupeInterval: fetch.DefaultDedupeInterval,
		SessionTTL:     2 * time.Hour,
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIURL, "API_URL")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"FETCH_WAIT", &c.FetchWait},
		{"DEDUPE_INTERVAL", &c.DedupeInterval},
		{"SESSION_TTL", &c.SessionTTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url must be an absolute URL, got %q", c.APIURL))
	}
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.RequestTimeout < 0 || c.FetchWait < 0 || c.DedupeInterval < 0 || c.SessionTTL < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the web interface
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
