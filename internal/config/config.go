// Package config loads the gateway configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

// Config is the complete gateway configuration.
type Config struct {
	Port              string        `yaml:"port"`
	AnalysisServerURL string        `yaml:"analysis_server_url"`
	DraftingServerURL string        `yaml:"drafting_server_url"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	PreviewLines      int           `yaml:"preview_lines"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	Session           SessionConfig `yaml:"session"`
}

// SessionConfig bounds sessions and their tokens.
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	MaxSessions int           `yaml:"max_sessions"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:              "8080",
		AnalysisServerURL: "http://localhost:5000/api",
		DraftingServerURL: "http://localhost:8000/api",
		UpstreamTimeout:   60 * time.Second,
		PollInterval:      time.Second,
		PreviewLines:      10,
		Session: SessionConfig{
			TTL:         30 * time.Minute,
			MaxSessions: 64,
			TokenTTL:    12 * time.Hour,
		},
	}
}

// Load reads .env, then the YAML file named by ORCHESTRATOR_CONFIG
// (config.yaml when unset and present), then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := strings.TrimSpace(os.Getenv("ORCHESTRATOR_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			log.Printf("WARN: %s not found, using defaults and environment", path)
		} else {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillSecret()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := c.Merge(f); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// Merge overlays the YAML document in r onto c. Keys absent from the
// document keep their current values.
func (c *Config) Merge(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() error {
	if v := env("PORT"); v != "" {
		c.Port = strings.TrimPrefix(v, ":")
	}
	if v := env("ANALYSIS_SERVER_URL"); v != "" {
		c.AnalysisServerURL = v
	}
	if v := env("DRAFTING_SERVER_URL"); v != "" {
		c.DraftingServerURL = v
	}
	if v := env("SESSION_TOKEN_SECRET"); v != "" {
		c.Session.TokenSecret = v
	}
	if v := env("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"UPSTREAM_TIMEOUT", &c.UpstreamTimeout},
		{"POLL_INTERVAL", &c.PollInterval},
		{"SESSION_TTL", &c.Session.TTL},
		{"SESSION_TOKEN_TTL", &c.Session.TokenTTL},
	}
	for _, d := range durations {
		v := env(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, v, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PREVIEW_LINES", &c.PreviewLines},
		{"MAX_SESSIONS", &c.Session.MaxSessions},
	}
	for _, i := range ints {
		v := env(i.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", i.name, v, err)
		}
		*i.dst = parsed
	}
	return nil
}

func (c *Config) fillSecret() {
	if c.Session.TokenSecret != "" {
		return
	}
	log.Printf("WARN: SESSION_TOKEN_SECRET not set, using a random per-process secret")
	c.Session.TokenSecret = uuid.New().String() + uuid.New().String()
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.AnalysisServerURL == "" {
		errs = append(errs, errors.New("analysis_server_url is required"))
	}
	if c.DraftingServerURL == "" {
		errs = append(errs, errors.New("drafting_server_url is required"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream_timeout must be positive, got %s", c.UpstreamTimeout))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.PreviewLines <= 0 {
		errs = append(errs, fmt.Errorf("preview_lines must be positive, got %d", c.PreviewLines))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL))
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("session.max_sessions must be positive, got %d", c.Session.MaxSessions))
	}
	if c.Session.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("session.token_ttl must be positive, got %s", c.Session.TokenTTL))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
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
