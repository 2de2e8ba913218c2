package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPrompt      = "esh> "
	DefaultHistorySize = 1000
	defaultHistoryName = ".jobshell_history"
)

type Config struct {
	HistoryFile string `yaml:"history_file"`
	HistorySize int    `yaml:"history_size"`
	HomeDir     string `yaml:"home_dir"`
	Prompt      string `yaml:"prompt"`
	PluginDir   string `yaml:"plugin_dir"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns a configuration with every field filled in.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a YAML configuration file. A missing file is not an error and
// yields the defaults.
func Load(file string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(expandHome(file))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", file, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", file, err)
		}
	}

	if err := cfg.fill(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) fill() error {
	var err error
	if cfg.HomeDir == "" {
		cfg.HomeDir, err = os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error getting home directory: %w", err)
		}
	}

	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(cfg.HomeDir, defaultHistoryName)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.HistoryFile = expandHome(cfg.HistoryFile)
	cfg.PluginDir = expandHome(cfg.PluginDir)
	cfg.LogFile = expandHome(cfg.LogFile)
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
