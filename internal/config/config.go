// Package config provides configuration loading and structs for barstamp.
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
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Import   ImportConfig   `yaml:"import"`
	Annotate AnnotateConfig `yaml:"annotate"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the barcode database and the lookup index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	LookupIndexPath string `yaml:"lookup_index_path"`
}

// ImportConfig holds the spreadsheet layout produced by the accounting export.
type ImportConfig struct {
	// Sheet is the worksheet to read; empty means the first sheet in the workbook.
	Sheet string `yaml:"sheet"`
	// HeaderRows is the number of leading rows to skip before data.
	HeaderRows *int `yaml:"header_rows"`
	// IDColumn and BarcodeColumn are spreadsheet column letters.
	IDColumn      string   `yaml:"id_column"`
	BarcodeColumn string   `yaml:"barcode_column"`
	Extensions    []string `yaml:"extensions"`
	// ExtractImages pulls barcode pictures embedded in the workbook into the store.
	ExtractImages *bool `yaml:"extract_images"`
}

// HeaderRowsOrDefault returns the configured header row count; defaults to 1 when unset.
func (c *ImportConfig) HeaderRowsOrDefault() int {
	if c.HeaderRows != nil {
		return *c.HeaderRows
	}
	return 1
}

// ExtractImagesOrDefault returns whether to pull embedded pictures; defaults to true when unset.
func (c *ImportConfig) ExtractImagesOrDefault() bool {
	if c.ExtractImages != nil {
		return *c.ExtractImages
	}
	return true
}

// StampConfig controls barcode placement on the target page.
// The stamp box is page_width/WidthFactor wide and page_height/HeightFactor
// tall, anchored at Position.
type StampConfig struct {
	// Position is a pdfcpu anchor: tr, tl, br, bl, c.
	Position     string  `yaml:"position"`
	WidthFactor  float64 `yaml:"width_factor"`
	HeightFactor float64 `yaml:"height_factor"`
}

// AnnotateConfig holds annotation run settings.
type AnnotateConfig struct {
	OutputDir string `yaml:"output_dir"`
	// ArchiveDir receives successfully annotated input files; empty disables archiving.
	ArchiveDir string `yaml:"archive_dir"`
	Workers    int    `yaml:"workers"`
	// IDPattern is an optional regex matched against first-page text when the
	// file name does not identify the document.
	IDPattern string      `yaml:"id_pattern"`
	Stamp     StampConfig `yaml:"stamp"`
}

// WatchConfig holds spreadsheet inbox watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.LookupIndexPath = expandPath(cfg.Storage.LookupIndexPath, configDir)
	if cfg.Annotate.OutputDir != "" {
		cfg.Annotate.OutputDir = expandPath(cfg.Annotate.OutputDir, configDir)
	}
	if cfg.Annotate.ArchiveDir != "" {
		cfg.Annotate.ArchiveDir = expandPath(cfg.Annotate.ArchiveDir, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
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
	if filepath.IsAbs(path) {
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
