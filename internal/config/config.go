package config

import (
	"os"
	"strconv"
	"time"

	"sheetsense/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Upload   UploadConfig
	Locale   LocaleConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// AIConfig holds language-understanding service settings
type AIConfig struct {
	OpenAIKey   string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// UploadConfig holds file upload limits
type UploadConfig struct {
	Dir        string
	MaxSizeMB  int64
	Extensions []string
}

// LocaleConfig holds deployment-locale parsing rules
type LocaleConfig struct {
	// DayFirst resolves ambiguous numeric dates (02/03/2024) as day/month
	DayFirst bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	config := &Config{
		Database: DatabaseConfig{URL: url},
		AI: AIConfig{
			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
			Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 30*time.Second),
			Temperature: getEnvFloatOrDefault("LLM_TEMPERATURE", 0.3),
			MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 1024),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Upload: UploadConfig{
			Dir:        getEnvOrDefault("UPLOAD_DIR", "./uploads"),
			MaxSizeMB:  int64(getEnvIntOrDefault("MAX_FILE_SIZE_MB", 50)),
			Extensions: []string{".xlsx", ".xlsm", ".csv"},
		},
		Locale: LocaleConfig{
			DayFirst: getEnvBoolOrDefault("DATE_DAY_FIRST", false),
		},
	}
	return config, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
