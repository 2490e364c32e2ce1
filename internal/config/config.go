// Package config loads and validates application configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/specialty-map-server/internal/domain"
)

// Manager loads and holds the application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/specialty-map-server/")

	viper.SetEnvPrefix("SPECMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars still apply
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.rate_limit", 50.0)
	viper.SetDefault("server.rate_burst", 100)

	// Engine defaults
	engine := domain.DefaultEngineConfig()
	viper.SetDefault("engine.weights.token", engine.Weights.Token)
	viper.SetDefault("engine.weights.synonym", engine.Weights.Synonym)
	viper.SetDefault("engine.weights.char_sim", engine.Weights.CharSim)
	viper.SetDefault("engine.weights.negative", engine.Weights.Negative)
	viper.SetDefault("engine.weights.source_hint", engine.Weights.SourceHint)
	viper.SetDefault("engine.min_confidence", engine.MinConfidence)
	viper.SetDefault("engine.max_candidates", engine.MaxCandidates)
	viper.SetDefault("engine.batch_workers", engine.BatchWorkers)

	// Data defaults
	viper.SetDefault("data.taxonomy_path", "config/taxonomy.yaml")
	viper.SetDefault("data.synonyms_path", "config/synonyms.yaml")
	viper.SetDefault("data.rules_dir", "config/rules")
	viper.SetDefault("data.overrides_path", "config/overrides.yaml")
	viper.SetDefault("data.overrides_db", "data/overrides.db")

	// Database defaults
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "specialty_map")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	viper.SetDefault("cache.max_items", 10000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.redis_url", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetEngineConfig returns mapping engine configuration
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// GetDataConfig returns the configuration document paths
func (m *Manager) GetDataConfig() *domain.DataConfig {
	return &m.config.Data
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	engine := config.Engine
	if engine.MinConfidence < 0 || engine.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %v", engine.MinConfidence)
	}
	for name, w := range map[string]float64{
		"token":       engine.Weights.Token,
		"synonym":     engine.Weights.Synonym,
		"char_sim":    engine.Weights.CharSim,
		"negative":    engine.Weights.Negative,
		"source_hint": engine.Weights.SourceHint,
	} {
		if w < 0 {
			return fmt.Errorf("engine weight %s must be non-negative, got %v", name, w)
		}
	}
	if engine.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be at least 1, got %d", engine.BatchWorkers)
	}

	if config.Data.TaxonomyPath == "" {
		return fmt.Errorf("taxonomy path is required")
	}
	if config.Data.SynonymsPath == "" {
		return fmt.Errorf("synonyms path is required")
	}
	if config.Data.RulesDir == "" {
		return fmt.Errorf("rules directory is required")
	}

	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
