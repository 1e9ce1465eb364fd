// Package server implements the main BasketDB server logic.
//
// This file defines the Go structs that correspond to the YAML configuration
// for the IngestorService. These structs allow for type-safe parsing of the
// configuration file, defining how each ingestor should behave: where its
// transaction files live, how often it rescans them, and how they are parsed
// into baskets.

package server

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level structure of the ingestors configuration file.
// It holds a slice of configurations, one for each ingestor worker.
type Config struct {
	Ingestors []IngestorConfig `yaml:"ingestors"`
}

// IngestorConfig defines the configuration for a single synchronization task.
// Each IngestorConfig corresponds to one background worker that monitors a
// source directory and feeds its transaction files into a BasketDB dataset.
type IngestorConfig struct {
	Name     string       `yaml:"name"`
	Dataset  string       `yaml:"dataset"`
	Schedule string       `yaml:"schedule"`
	Source   SourceConfig `yaml:"source"`

	// Format selects the loader: auto (default), csv, json, pdf, pdf-layout.
	Format string `yaml:"format"`

	// ImportMode is "observe" (default: every basket goes through the
	// journal) or "import" (bypass the journal, snapshot after each file).
	ImportMode string `yaml:"import_mode"`

	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// Labels are display names applied to product identifiers once at
	// worker startup, e.g. sku-1041: "Whole Milk 1L".
	Labels map[string]string `yaml:"labels"`
}

// SourceConfig defines where the transaction files are read from.
type SourceConfig struct {
	Type string `yaml:"type"` // "filesystem"
	Path string `yaml:"path"`
}

// LoadIngestorsConfig reads and parses the YAML configuration file from the given path.
// It uses Strict Mode (KnownFields) to prevent silent errors due to typos.
func LoadIngestorsConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}

	expandedData := os.ExpandEnv(string(data))

	var config Config
	decoder := yaml.NewDecoder(strings.NewReader(expandedData))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML syntax error in '%s': %w", path, err)
	}

	return &config, nil
}
