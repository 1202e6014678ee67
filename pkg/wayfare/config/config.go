package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Scheduling SchedulingConfig
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port    string
	BaseURL string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// SchedulingConfig holds the tunables of the scheduling engine.
type SchedulingConfig struct {
	// WindowCapPerUser caps open date windows per traveler per trip
	WindowCapPerUser int
	// SimilarityThreshold is the [0,1] score above which a new window is
	// treated as a duplicate of an existing one
	SimilarityThreshold float64
	// ProposalReadinessThreshold is the fraction of active travelers that
	// must support a window before it can be proposed without an override
	ProposalReadinessThreshold float64
}

// Load reads configuration from file and env. Env var overrides use prefix WAYFARE_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("database.path", "wayfare.db")
	v.SetDefault("scheduling.window_cap_per_user", 3)
	v.SetDefault("scheduling.similarity_threshold", 0.8)
	v.SetDefault("scheduling.proposal_readiness_threshold", 0.5)

	v.SetConfigType("toml")
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/wayfare")

	v.SetEnvPrefix("WAYFARE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// DefaultScheduling returns the scheduling tunables used when no config is loaded.
// Tests construct handlers with this directly.
func DefaultScheduling() SchedulingConfig {
	return SchedulingConfig{
		WindowCapPerUser:           3,
		SimilarityThreshold:        0.8,
		ProposalReadinessThreshold: 0.5,
	}
}
