// Package config provides configuration loading and structs for traitview.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Fields  FieldsConfig  `yaml:"fields"`
	Pager   PagerConfig   `yaml:"pager"`
	Traits  TraitsConfig  `yaml:"traits"`
	Markup  MarkupConfig  `yaml:"markup"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatasetConfig locates the producer's dataset.
type DatasetConfig struct {
	Path string `yaml:"path"`
	// Format is json, jsonl or sqlite. Empty means infer from the extension.
	Format string `yaml:"format"`
}

// FieldsConfig holds the field groups, each in column order.
type FieldsConfig struct {
	Extra  []string `yaml:"extra"`
	Trait  []string `yaml:"trait"`
	Search []string `yaml:"search"`
	AsIs   []string `yaml:"as_is"`
}

// PagerConfig holds paging settings.
type PagerConfig struct {
	PageSize int `yaml:"page_size"`
}

// TraitsConfig selects the trait summary layout.
type TraitsConfig struct {
	VerbatimFlag               string `yaml:"verbatim_flag"`
	SuppressVerbatimProvenance *bool  `yaml:"suppress_verbatim_provenance"`
	FieldFlagsFirst            *bool  `yaml:"field_flags_first"`
	SeparatorBeforeFirst       bool   `yaml:"separator_before_first"`
	UnitsLabel                 string `yaml:"units_label"`
	FlagWordSeparator          string `yaml:"flag_word_separator"`
}

// SuppressVerbatimOrDefault returns whether verbatim traits hide their
// provenance; defaults to true when unset.
func (t *TraitsConfig) SuppressVerbatimOrDefault() bool {
	if t.SuppressVerbatimProvenance != nil {
		return *t.SuppressVerbatimProvenance
	}
	return true
}

// FieldFlagsFirstOrDefault returns whether field-level flags lead the
// summary; defaults to true when unset.
func (t *TraitsConfig) FieldFlagsFirstOrDefault() bool {
	if t.FieldFlagsFirst != nil {
		return *t.FieldFlagsFirst
	}
	return true
}

// MarkupConfig holds the strings inserted into HTML cells.
type MarkupConfig struct {
	HighlightOpen  string `yaml:"highlight_open"`
	HighlightClose string `yaml:"highlight_close"`
	LineBreak      string `yaml:"line_break"`
	Separator      string `yaml:"separator"`
}

// WatchConfig controls dataset change notifications.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	cfg.Dataset.Path = expandPath(cfg.Dataset.Path, filepath.Dir(path))

	return &cfg, nil
}

// Save writes the config to path. Used by "traitview init".
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
