package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/crisisboard/internal/pipeline"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Data      Data      `yaml:"data"`
	Dashboard Dashboard `yaml:"dashboard"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

// Data points at the dataset files and the SQLite data directory.
type Data struct {
	Corpus    string `yaml:"corpus"`
	Lexicon   string `yaml:"lexicon"`
	Graph     string `yaml:"graph"`
	BlockList string `yaml:"blocklist"`
	DataDir   string `yaml:"data_dir"`
}

type Dashboard struct {
	Variant      string   `yaml:"variant"`
	MinSupport   int      `yaml:"min_support"`
	TopWords     int      `yaml:"top_words"`
	GraphNodes   int      `yaml:"graph_nodes"`
	SpecialWords []string `yaml:"special_words"`
}

type Server struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for crisisboard.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "crisisboard")
}

// DataDir returns the XDG data directory for crisisboard.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "crisisboard")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/crisisboard/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'crisisboard init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Dashboard: Dashboard{
			Variant:    string(pipeline.VariantCharts),
			MinSupport: pipeline.DefaultMinSupport,
			TopWords:   pipeline.DefaultTopWords,
			GraphNodes: pipeline.DefaultGraphNodes,
		},
		Server:  Server{Host: "127.0.0.1", Port: 8000},
		Logging: Logging{Level: "INFO", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := pipeline.ParseVariant(c.Dashboard.Variant); err != nil {
		errs = append(errs, err)
	}
	if c.Dashboard.MinSupport < 1 {
		errs = append(errs, fmt.Errorf("dashboard.min_support must be positive, got %d", c.Dashboard.MinSupport))
	}
	if c.Dashboard.TopWords < 1 {
		errs = append(errs, fmt.Errorf("dashboard.top_words must be positive, got %d", c.Dashboard.TopWords))
	}
	if c.Dashboard.GraphNodes < 1 {
		errs = append(errs, fmt.Errorf("dashboard.graph_nodes must be positive, got %d", c.Dashboard.GraphNodes))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// PipelineOptions maps the dashboard section onto session options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	variant, err := pipeline.ParseVariant(c.Dashboard.Variant)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Variant:      variant,
		MinSupport:   c.Dashboard.MinSupport,
		TopWords:     c.Dashboard.TopWords,
		GraphNodes:   c.Dashboard.GraphNodes,
		SpecialWords: c.Dashboard.SpecialWords,
	}, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Data.DataDir != "" {
		return c.Data.DataDir
	}
	return DataDir()
}

// DBPath returns the SQLite database location inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "crisisboard.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
