package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// TMDB
	TMDBAPIKey    string
	TMDBBaseURL   string
	TMDBRateLimit float64 // Requests per second allowed against TMDB
	TMDBBurst     int

	// Cloud store (optional)
	CloudDSN     string
	CloudAccount string

	// Reminder webhook (optional)
	ReminderWebhookURL string

	// Sync engine
	Sync SyncConfig

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/airdate.db

	// Logging
	LogLevel string
}

// SyncConfig holds the tunables of the sync engine and reminder poller
type SyncConfig struct {
	TTL              time.Duration // Age after which a fresh index is eligible for a full resync
	BatchSize        int           // Items fetched concurrently per batch
	BatchCooldown    time.Duration // Pause between batches
	NearWindowBefore time.Duration // Priority window start, relative to today
	NearWindowAfter  time.Duration // Priority window end, relative to today
	ArchiveCutoff    time.Duration // Rows older than this are archive-only
	IndexKey         string
	MetadataKey      string
	SyncSchedule     string // cron spec for periodic sync
	ReminderInterval time.Duration
}

// DefaultSyncConfig returns the engine defaults
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		TTL:              6 * time.Hour,
		BatchSize:        4,
		BatchCooldown:    50 * time.Millisecond,
		NearWindowBefore: 14 * 24 * time.Hour,
		NearWindowAfter:  21 * 24 * time.Hour,
		ArchiveCutoff:    365 * 24 * time.Hour,
		IndexKey:         "episode-index",
		MetadataKey:      "sync-metadata",
		SyncSchedule:     "0 */6 * * *",
		ReminderInterval: 60 * time.Second,
	}
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	defaults := DefaultSyncConfig()
	viper.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	viper.SetDefault("TMDB_RATE_LIMIT", 4.0)
	viper.SetDefault("TMDB_BURST", 8)
	viper.SetDefault("SYNC_TTL", defaults.TTL)
	viper.SetDefault("SYNC_BATCH_SIZE", defaults.BatchSize)
	viper.SetDefault("SYNC_BATCH_COOLDOWN", defaults.BatchCooldown)
	viper.SetDefault("SYNC_SCHEDULE", defaults.SyncSchedule)
	viper.SetDefault("REMINDER_INTERVAL", defaults.ReminderInterval)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "airdate")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	syncCfg := defaults
	syncCfg.TTL = viper.GetDuration("SYNC_TTL")
	syncCfg.BatchSize = viper.GetInt("SYNC_BATCH_SIZE")
	syncCfg.BatchCooldown = viper.GetDuration("SYNC_BATCH_COOLDOWN")
	syncCfg.SyncSchedule = viper.GetString("SYNC_SCHEDULE")
	syncCfg.ReminderInterval = viper.GetDuration("REMINDER_INTERVAL")

	config := &Config{
		TMDBAPIKey:    viper.GetString("TMDB_API_KEY"),
		TMDBBaseURL:   viper.GetString("TMDB_BASE_URL"),
		TMDBRateLimit: viper.GetFloat64("TMDB_RATE_LIMIT"),
		TMDBBurst:     viper.GetInt("TMDB_BURST"),

		CloudDSN:     viper.GetString("CLOUD_DSN"),
		CloudAccount: viper.GetString("CLOUD_ACCOUNT"),

		ReminderWebhookURL: viper.GetString("REMINDER_WEBHOOK_URL"),

		Sync: syncCfg,

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile: filepath.Join(configDir, "airdate.db"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and engine bounds
func (c *Config) Validate() error {
	if c.TMDBAPIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.CloudDSN != "" && c.CloudAccount == "" {
		return fmt.Errorf("CLOUD_ACCOUNT is required when CLOUD_DSN is set")
	}
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be at least 1, got %d", c.Sync.BatchSize)
	}
	if c.Sync.TTL <= 0 {
		return fmt.Errorf("SYNC_TTL must be positive")
	}
	if c.Sync.ReminderInterval < time.Second {
		return fmt.Errorf("REMINDER_INTERVAL must be at least 1s")
	}
	return nil
}
