// Package config loads engine configuration from .skg/config.yaml with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"skg/internal/cascade"
	skgerrors "skg/internal/errors"
)

// Config is the complete engine configuration.
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	OrgID   string `json:"orgId" mapstructure:"orgId"`
	RepoID  string `json:"repoId" mapstructure:"repoId"`

	Storage    StorageConfig    `json:"storage" mapstructure:"storage"`
	Cascade    cascade.Config   `json:"cascade" mapstructure:"cascade"`
	Quarantine QuarantineConfig `json:"quarantine" mapstructure:"quarantine"`
	Provider   ProviderConfig   `json:"provider" mapstructure:"provider"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// StorageConfig locates the sqlite database.
type StorageConfig struct {
	DBPath string `json:"dbPath" mapstructure:"dbPath"`
}

// QuarantineConfig bounds per-unit processing.
type QuarantineConfig struct {
	MaxUnitBytes int64 `json:"maxUnitBytes" mapstructure:"maxUnitBytes"`
	// UnitTimeout bounds the wall-clock time one unit may spend in
	// guarded processing. Zero disables the deadline.
	UnitTimeout time.Duration `json:"unitTimeout" mapstructure:"unitTimeout"`
}

// ProviderConfig configures the embedding/LLM provider. The API key itself
// comes from the environment (SKG_PROVIDER_APIKEY), never from the file.
type ProviderConfig struct {
	APIKey         string `json:"-" mapstructure:"apiKey"`
	EmbeddingModel string `json:"embeddingModel" mapstructure:"embeddingModel"`
	ChatModel      string `json:"chatModel" mapstructure:"chatModel"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"` // "json" or "human"
	Level  string `json:"level" mapstructure:"level"`
}

// Default returns the default configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DBPath: filepath.Join(dir, ".skg", "skg.db"),
		},
		Cascade: cascade.DefaultConfig(),
		Quarantine: QuarantineConfig{
			MaxUnitBytes: 2 << 20, // 2 MiB per unit
			UnitTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Format: "human", Level: "info"},
	}
}

// Load reads configuration from dir/.skg/config.yaml, falling back to
// defaults when the file is absent. SKG_* environment variables override
// file values (e.g. SKG_CASCADE_MAXHOPS).
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(dir, ".skg"))
	v.SetEnvPrefix("SKG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default(dir)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("storage.dbPath", defaults.Storage.DBPath)
	v.SetDefault("cascade.maxHops", defaults.Cascade.MaxHops)
	v.SetDefault("cascade.maxEntities", defaults.Cascade.MaxEntities)
	v.SetDefault("cascade.centralityThreshold", defaults.Cascade.CentralityThreshold)
	v.SetDefault("cascade.significanceThreshold", defaults.Cascade.SignificanceThreshold)
	v.SetDefault("quarantine.maxUnitBytes", defaults.Quarantine.MaxUnitBytes)
	v.SetDefault("quarantine.unitTimeout", defaults.Quarantine.UnitTimeout)
	// AutomaticEnv only surfaces keys viper already knows about, so every
	// env-only key still needs a default registered here. Without these the
	// api key (environment-only, never in the file) would be dropped.
	v.SetDefault("provider.apiKey", "")
	v.SetDefault("provider.embeddingModel", "")
	v.SetDefault("provider.chatModel", "")
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Cascade.MaxHops < 0 {
		return skgerrors.New(skgerrors.ConfigInvalid,
			fmt.Sprintf("cascade.maxHops must be >= 0, got %d", c.Cascade.MaxHops))
	}
	if c.Cascade.MaxEntities <= 0 {
		return skgerrors.New(skgerrors.ConfigInvalid,
			fmt.Sprintf("cascade.maxEntities must be > 0, got %d", c.Cascade.MaxEntities))
	}
	if c.Cascade.CentralityThreshold <= 0 {
		return skgerrors.New(skgerrors.ConfigInvalid,
			fmt.Sprintf("cascade.centralityThreshold must be > 0, got %d", c.Cascade.CentralityThreshold))
	}
	if t := c.Cascade.SignificanceThreshold; t < 0 || t > 1 {
		return skgerrors.New(skgerrors.ConfigInvalid,
			fmt.Sprintf("cascade.significanceThreshold must be in [0,1], got %v", t))
	}
	if c.Quarantine.MaxUnitBytes < 0 {
		return skgerrors.New(skgerrors.ConfigInvalid,
			fmt.Sprintf("quarantine.maxUnitBytes must be >= 0, got %d", c.Quarantine.MaxUnitBytes))
	}
	if c.Quarantine.UnitTimeout < 0 {
		return skgerrors.New(skgerrors.ConfigInvalid,
			fmt.Sprintf("quarantine.unitTimeout must be >= 0, got %v", c.Quarantine.UnitTimeout))
	}
	return nil
}
