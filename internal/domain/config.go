package domain

import (
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	APIKey       string        `mapstructure:"api_key"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// ScoringWeights are the configurable weights of the candidate scorer.
// Negative holds the magnitude of the negative-guard penalty; the scorer
// subtracts it.
type ScoringWeights struct {
	Token      float64 `mapstructure:"token" json:"token"`
	Synonym    float64 `mapstructure:"synonym" json:"synonym"`
	CharSim    float64 `mapstructure:"char_sim" json:"char_sim"`
	Negative   float64 `mapstructure:"negative" json:"negative"`
	SourceHint float64 `mapstructure:"source_hint" json:"source_hint"`
}

// EngineConfig represents the mapping engine tuning parameters. These are
// operational configuration, not algorithmic constants.
type EngineConfig struct {
	Weights       ScoringWeights `mapstructure:"weights"`
	MinConfidence float64        `mapstructure:"min_confidence"`
	MaxCandidates int            `mapstructure:"max_candidates"`
	BatchWorkers  int            `mapstructure:"batch_workers"`
}

// DefaultEngineConfig returns the conservative preset.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights: ScoringWeights{
			Token:      0.45,
			Synonym:    0.25,
			CharSim:    0.15,
			Negative:   0.35,
			SourceHint: 0.05,
		},
		MinConfidence: 0.68,
		MaxCandidates: 5,
		BatchWorkers:  8,
	}
}

// DataConfig holds the paths of the versioned configuration documents the
// engine loads once at startup.
type DataConfig struct {
	TaxonomyPath  string `mapstructure:"taxonomy_path"`
	SynonymsPath  string `mapstructure:"synonyms_path"`
	RulesDir      string `mapstructure:"rules_dir"`
	OverridesPath string `mapstructure:"overrides_path"`
	OverridesDB   string `mapstructure:"overrides_db"`
}

// DatabaseConfig represents the optional decision audit database.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents the decision cache configuration.
type CacheConfig struct {
	MaxItems int           `mapstructure:"max_items"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
