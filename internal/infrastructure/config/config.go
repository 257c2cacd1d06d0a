package config

import (
	"fmt"
	"io"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
)

// Config holds all process configuration.
type Config struct {
	Loader  LoaderConfig
	Logging LogConfig
}

// LoaderConfig holds the process default loader configuration.
type LoaderConfig struct {
	ID       string `envconfig:"SDK_LOADER_ID"`
	Name     string `envconfig:"SDK_LOADER_NAME" default:"sdk"`
	Root     string `envconfig:"SDK_ROOT" default:"."`
	Manifest string `envconfig:"SDK_MANIFEST"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Profile is the resolved default loader configuration of the process.
type Profile struct {
	Options loader.Options
	// Preload lists the module ids the manifest asks to load eagerly.
	Preload []string

	closer io.Closer
}

// Close releases the module root. Modules can no longer be fetched after.
func (p *Profile) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Name: "sdk",
			Root: ".",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// NewLogger builds the process logger described by the logging section.
func (c *Config) NewLogger() (*logging.Logger, error) {
	cfg := logging.DefaultConfig()
	if c.Logging.Development {
		cfg = logging.DevelopmentConfig()
	}
	if c.Logging.Level != "" {
		cfg.Level = c.Logging.Level
	}
	return logging.New(cfg)
}

// DefaultBase returns the URI base the empty prefix maps to for name.
func DefaultBase(name string) string {
	return "resource://" + name + "/"
}

// Profile resolves the default loader configuration: environment values
// first, then the manifest when one is configured. Modules are served from
// the root directory or pack; Close the profile to release it.
func (c *Config) Profile() (*Profile, error) {
	fsys, closer, err := OpenRoot(c.Loader.Root)
	if err != nil {
		return nil, err
	}

	opts := loader.Options{
		ID:     c.Loader.ID,
		Name:   c.Loader.Name,
		Paths:  map[string]string{"": DefaultBase(c.Loader.Name)},
		Source: loader.FSFetcher(fsys),
	}
	profile := &Profile{Options: opts, closer: closer}

	if c.Loader.Manifest == "" {
		return profile, nil
	}

	manifest, err := LoadManifest(c.Loader.Manifest)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	manifest.Apply(&profile.Options)

	profile.Preload, err = ExpandPreload(fsys, manifest.Preload)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return profile, nil
}
