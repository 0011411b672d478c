package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the service reads from the environment.
type AppConfig struct {
	// Outbound weather API.
	WeatherAPIURL string
	WeatherAPIKey string
	WeatherCity   string
	HTTPTimeout   time.Duration

	// Storage. An empty connection string selects the in-memory
	// backend, which suits local development.
	StorageConnectionString string
	TableName               string
	ContainerName           string

	Port     string
	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.WeatherAPIURL = getenvDefault("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5/weather")
	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	cfg.WeatherCity = getenvDefault("WEATHER_CITY", "London")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.StorageConnectionString = os.Getenv("STORAGE_CONNECTION_STRING")
	cfg.TableName = getenvDefault("TABLE_NAME", "WeatherLogs")
	cfg.ContainerName = getenvDefault("CONTAINER_NAME", "weather-payloads")

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
