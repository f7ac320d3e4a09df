// Package config loads the daemon's ambient configuration: log level,
// debounce defaults, storage and category-table paths, and the
// metrics/trace endpoints, grounded on the teacher's
// controlplane/config.Load/Default/Save shape.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's top-level configuration.
type Config struct {
	LogLevel          string `yaml:"logLevel"`
	DefaultDebounceMs int64  `yaml:"defaultDebounceMs"`
	StoragePath       string `yaml:"storagePath"`
	RulesPath         string `yaml:"rulesPath"`
	CategoryTablePath string `yaml:"categoryTablePath"`
	MetricsAddr       string `yaml:"metricsAddr"`
	OTLPEndpoint      string `yaml:"otlpEndpoint"`
}

// Default returns the built-in configuration, used when no file is
// present and no environment overrides are set.
func Default() Config {
	return Config{
		LogLevel:          "info",
		DefaultDebounceMs: 2000,
		StoragePath:       "tabrules-store.json",
		RulesPath:         "tabrules.json",
		CategoryTablePath: "",
		MetricsAddr:       ":9090",
		OTLPEndpoint:      "",
	}
}

// Load reads a YAML config file at path, falling back to Default() for
// any field the file omits, and then applies TABSENTRY_* environment
// overrides on top. A missing file is not an error: Load returns
// Default() overlaid with environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TABSENTRY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TABSENTRY_DEFAULT_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DefaultDebounceMs = n
		}
	}
	if v := os.Getenv("TABSENTRY_STORAGE_PATH"); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv("TABSENTRY_RULES_PATH"); v != "" {
		cfg.RulesPath = v
	}
	if v := os.Getenv("TABSENTRY_CATEGORY_TABLE_PATH"); v != "" {
		cfg.CategoryTablePath = v
	}
	if v := os.Getenv("TABSENTRY_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("TABSENTRY_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
}
