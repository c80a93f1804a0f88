package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Telegram
	BotToken       string
	AdminChannelID int64 // Channel whose file posts are ingested

	// TMDB
	TMDBAPIKey string

	// Delivery
	DeleteDelayMinutes int // Minutes a delivered copy lives before auto-delete (default: 30)

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/moviezhub.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("DELETE_DELAY_MINUTES", 30)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "moviezhub")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Telegram
		BotToken:       viper.GetString("BOT_TOKEN"),
		AdminChannelID: viper.GetInt64("ADMIN_CHANNEL_ID"),

		// TMDB
		TMDBAPIKey: viper.GetString("TMDB_API_KEY"),

		// Delivery
		DeleteDelayMinutes: viper.GetInt("DELETE_DELAY_MINUTES"),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "moviezhub.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if config.AdminChannelID == 0 {
		return nil, fmt.Errorf("ADMIN_CHANNEL_ID is required")
	}
	if config.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}

	return config, nil
}
