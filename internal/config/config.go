// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Repo    RepoConfig     `yaml:"repo" mapstructure:"repo"`
	Query   QueryConfig    `yaml:"query" mapstructure:"query"`
	Sources []SourceConfig `yaml:"sources" mapstructure:"sources"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the XRPC HTTP server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// RepoConfig identifies the repository records are served under.
type RepoConfig struct {
	Identifier string `yaml:"identifier" mapstructure:"identifier"`
}

// QueryConfig configures search behavior.
type QueryConfig struct {
	DefaultLimit int     `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int     `yaml:"max_limit" mapstructure:"max_limit"`
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	// RequireCriteria rejects nearest searches that carry neither a centroid
	// nor a text filter instead of selecting an arbitrary slice of the
	// dataset.
	RequireCriteria bool `yaml:"require_criteria" mapstructure:"require_criteria"`
}

// SourceConfig wires one backing dataset into the registry.
type SourceConfig struct {
	// Collection overrides the spec's collection identifier when set.
	Collection string `yaml:"collection" mapstructure:"collection"`
	// Driver selects the backend: "postgres" or "sqlite".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DSN is the Postgres connection string or the SQLite file path.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
	// Spec names a built-in column mapping ("foursquare", "overture").
	Spec string `yaml:"spec" mapstructure:"spec"`
	// SpecFile points at a custom YAML column mapping; overrides Spec.
	SpecFile string `yaml:"spec_file" mapstructure:"spec_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GAZETTEER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("repo.identifier", "gazetteer.local")
	v.SetDefault("query.default_limit", 50)
	v.SetDefault("query.max_limit", 500)
	v.SetDefault("query.radius_meters", 5000)
	v.SetDefault("query.require_criteria", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
