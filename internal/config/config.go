package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database  DatabaseConfig
	Remote    RemoteConfig
	AI        AIConfig
	Media     MediaConfig
	Analytics AnalyticsConfig
	Log       LogConfig
}

// DatabaseConfig holds local sqlite settings.
type DatabaseConfig struct {
	Path string
}

// RemoteConfig holds the remote document store settings. An empty Project
// disables the Firestore client and the engine runs against the in-memory
// remote store (offline mode).
type RemoteConfig struct {
	Project string
	UserID  string
}

// AIConfig holds model settings.
type AIConfig struct {
	Model string
}

// MediaConfig holds photo attachment storage settings. An empty bucket
// disables uploads.
type MediaConfig struct {
	Bucket string
}

// AnalyticsConfig holds the BigQuery export settings used by cmd/export.
type AnalyticsConfig struct {
	Project string
	Dataset string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix
// SPENDWISE_, e.g. SPENDWISE_REMOTE_PROJECT.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "spendwise", "spendwise.db"))
	v.SetDefault("remote.project", "")
	v.SetDefault("remote.user_id", "local")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("media.bucket", "")
	v.SetDefault("analytics.project", "")
	v.SetDefault("analytics.dataset", "finance")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SPENDWISE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "spendwise"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SPENDWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything has defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgPath != "" {
			return Config{}, fmt.Errorf("config.Load: reading %s: %w", cfgPath, err)
		}
	}

	cfg := Config{
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Remote: RemoteConfig{
			Project: v.GetString("remote.project"),
			UserID:  v.GetString("remote.user_id"),
		},
		AI: AIConfig{
			Model: v.GetString("ai.model"),
		},
		Media: MediaConfig{
			Bucket: v.GetString("media.bucket"),
		},
		Analytics: AnalyticsConfig{
			Project: v.GetString("analytics.project"),
			Dataset: v.GetString("analytics.dataset"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if cfg.Remote.Project != "" && cfg.Remote.UserID == "" {
		return Config{}, fmt.Errorf("config.Load: remote.user_id is required when remote.project is set")
	}

	return cfg, nil
}
