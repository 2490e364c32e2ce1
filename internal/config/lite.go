// This file contains the lightweight configuration for standalone operation
// of the MCP server and the batch CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the override database and exports

	// Configuration document paths
	TaxonomyPath  string
	SynonymsPath  string
	RulesDir      string
	OverridesPath string

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".specialty-map")

	return &LiteConfig{
		DataDir:       dataDir,
		TaxonomyPath:  "config/taxonomy.yaml",
		SynonymsPath:  "config/synonyms.yaml",
		RulesDir:      "config/rules",
		OverridesPath: "config/overrides.yaml",
		CacheMaxItems: 1000,
		CacheTTL:      24 * time.Hour,
		Transport:     "stdio",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("SPECMAP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("SPECMAP_TAXONOMY_PATH"); v != "" {
		cfg.TaxonomyPath = v
	}
	if v := os.Getenv("SPECMAP_SYNONYMS_PATH"); v != "" {
		cfg.SynonymsPath = v
	}
	if v := os.Getenv("SPECMAP_RULES_DIR"); v != "" {
		cfg.RulesDir = v
	}
	if v := os.Getenv("SPECMAP_OVERRIDES_PATH"); v != "" {
		cfg.OverridesPath = v
	}

	if v := os.Getenv("SPECMAP_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("SPECMAP_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("SPECMAP_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("SPECMAP_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("SPECMAP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SPECMAP_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// OverridesDBPath returns the path to the override SQLite database.
func (c *LiteConfig) OverridesDBPath() string {
	return filepath.Join(c.DataDir, "overrides.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
