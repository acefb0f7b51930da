// Package config provides configuration management for the application.
package config

import (
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Type is "sqlite" or "postgres".
	Type string `mapstructure:"type"`
	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path"`
	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string `mapstructure:"database_url"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// RedisURL selects the Redis backend when set; empty falls back to the
	// in-process cache.
	RedisURL string `mapstructure:"redis_url"`
	// TTLSeconds is the lifetime of cached GET responses.
	TTLSeconds int `mapstructure:"ttl_seconds"`
	// MemoryMaxEntries bounds the in-process cache.
	MemoryMaxEntries int `mapstructure:"memory_max_entries"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("STORAGE_TYPE", "sqlite")
	viper.SetDefault("SQLITE_PATH", "dynaform.db")
	viper.SetDefault("CACHE_TTL_SECONDS", 3600)
	viper.SetDefault("CACHE_MEMORY_MAX_ENTRIES", 10000)
	viper.SetDefault("METRICS_ENABLED", false)

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	// Read configuration from environment variables using Viper
	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
		},
		Storage: StorageConfig{
			Type:        viper.GetString("STORAGE_TYPE"),
			SQLitePath:  viper.GetString("SQLITE_PATH"),
			DatabaseURL: viper.GetString("DATABASE_URL"),
		},
		Cache: CacheConfig{
			RedisURL:         viper.GetString("REDIS_URL"),
			TTLSeconds:       viper.GetInt("CACHE_TTL_SECONDS"),
			MemoryMaxEntries: viper.GetInt("CACHE_MEMORY_MAX_ENTRIES"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
		},
	}

	return cfg, nil
}
