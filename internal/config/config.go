// Package config loads service settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Port       int
	PublicURL  string
	UploadsDir string

	// Model backends
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	QwenModel         string
	YandexAPIKey      string
	YandexFolderID    string
	GeminiAPIKey      string
	GeminiModel       string

	// Local inference service
	MLServiceURL    string
	MLServiceAPIKey string

	// Image sources
	PexelsAPIKey        string
	FusionBrainAPIKey   string
	FusionBrainSecret   string

	// Publishing
	BotToken     string
	ChannelsFile string

	// Storage
	DatabaseURL    string
	AuthTokensFile string

	// Feed mode
	FeedsConfigPath string
	SeenCachePath   string
	SeenTTLHours    int
	FeedInterval    time.Duration
	FeedStyle       string
	FeedProvider    string

	// Limits
	MaxRequestsPerProvider int
	MaxRequestsTotal       int
	CacheTTL               time.Duration

	// Config files
	PlatformsConfigPath string

	Debug bool
}

func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnvIntOrDefault("PORT", 5000),
		UploadsDir: getEnvOrDefault("UPLOADS_DIR", "uploads"),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		QwenModel:         getEnvOrDefault("OPENROUTER_MODEL", "qwen/qwen3-30b-a3b:free"),
		YandexAPIKey:      os.Getenv("YANDEX_CLOUD_API_KEY"),
		YandexFolderID:    os.Getenv("YANDEX_CLOUD_PROJECT"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),

		MLServiceURL:    getEnvOrDefault("ML_SERVICE_URL", "http://localhost:8001"),
		MLServiceAPIKey: os.Getenv("ML_SERVICE_API_KEY"),

		PexelsAPIKey:      os.Getenv("PEXELS_API_KEY"),
		FusionBrainAPIKey: os.Getenv("FUSIONBRAIN_API_KEY"),
		FusionBrainSecret: os.Getenv("FUSIONBRAIN_SECRET_KEY"),

		BotToken:     os.Getenv("BOT_TOKEN"),
		ChannelsFile: getEnvOrDefault("CHANNELS_FILE", "channels.json"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AuthTokensFile: getEnvOrDefault("AUTH_TOKENS_FILE", "auth_tokens.json"),

		FeedsConfigPath: getEnvOrDefault("FEEDS_CONFIG_PATH", "configs/feeds.yaml"),
		SeenCachePath:   getEnvOrDefault("SEEN_CACHE_PATH", "seen_articles.json"),
		SeenTTLHours:    getEnvIntOrDefault("SEEN_TTL_HOURS", 48),
		FeedStyle:       getEnvOrDefault("FEED_STYLE", "casual"),
		FeedProvider:    getEnvOrDefault("FEED_PROVIDER", "qwen"),

		MaxRequestsPerProvider: getEnvIntOrDefault("MAX_REQUESTS_PER_PROVIDER", 0),
		MaxRequestsTotal:       getEnvIntOrDefault("MAX_REQUESTS_TOTAL", 0),

		PlatformsConfigPath: getEnvOrDefault("PLATFORMS_CONFIG_PATH", "configs/platforms.yaml"),
	}

	cfg.PublicURL = getEnvOrDefault("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))

	interval := getEnvIntOrDefault("FEED_INTERVAL_MINUTES", 30)
	cfg.FeedInterval = time.Duration(interval) * time.Minute

	cacheTTL := getEnvIntOrDefault("CACHE_TTL_MINUTES", 60)
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

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

// Validate checks that at least one rewrite backend is usable. Image
// and publishing integrations stay optional.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port")
	}
	if c.OpenRouterAPIKey == "" && c.YandexAPIKey == "" && c.GeminiAPIKey == "" && c.MLServiceAPIKey == "" {
		return fmt.Errorf("no rewrite backend configured: set OPENROUTER_API_KEY, YANDEX_CLOUD_API_KEY, GEMINI_API_KEY or ML_SERVICE_API_KEY")
	}
	if c.FusionBrainAPIKey != "" && c.FusionBrainSecret == "" {
		return fmt.Errorf("FUSIONBRAIN_SECRET_KEY is required when FUSIONBRAIN_API_KEY is set")
	}
	return nil
}
