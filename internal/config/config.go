package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"datapulse/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Auth     AuthConfig
	Analysis AnalysisConfig
	Ops      OpsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// AIConfig holds narrative service settings. The API key is optional:
// without it the pipeline substitutes the unavailable sentinel and never
// calls the network.
type AIConfig struct {
	OpenAIKey   string
	OpenAIModel string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	CORSOrigins    []string
	MaxUploadBytes int64
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AnalysisConfig holds pipeline settings
type AnalysisConfig struct {
	Contamination   float64
	Seed            int64
	MaxConcurrent   int64
	ForestTrees     int
	ForestSubsample int
}

// OpsConfig holds the operational (health + pprof) server settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		AI: AIConfig{
			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIModel: getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", ""),
			MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 1024),
			Temperature: getEnvFloatOrDefault("TEMPERATURE", 1.0),
			Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
		},
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8080"),
			GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
			CORSOrigins:    splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
			MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrDefault("JWT_SECRET", "your-secret-key-change-in-production"),
			TokenTTL:  getEnvDurationOrDefault("JWT_TTL", 24*time.Hour),
		},
		Analysis: AnalysisConfig{
			Contamination:   getEnvFloatOrDefault("OUTLIER_CONTAMINATION", 0.1),
			Seed:            int64(getEnvIntOrDefault("OUTLIER_SEED", 42)),
			MaxConcurrent:   int64(getEnvIntOrDefault("MAX_CONCURRENT_ANALYSES", 4)),
			ForestTrees:     getEnvIntOrDefault("FOREST_TREES", 100),
			ForestSubsample: getEnvIntOrDefault("FOREST_SUBSAMPLE", 256),
		},
		Ops: OpsConfig{
			Port:    getEnvOrDefault("OPS_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if config.Auth.JWTSecret == "" {
		return errors.ConfigInvalid("JWT secret cannot be empty")
	}
	if config.Analysis.Contamination <= 0 || config.Analysis.Contamination >= 1 {
		return errors.ConfigInvalid("OUTLIER_CONTAMINATION must be in (0, 1)")
	}
	if config.Server.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	return nil
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

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
