package config

import (
	"os"
	"strconv"
)

type Config struct {
	OpenAIAPIKey            string
	BrightDataAPIKey        string
	RedditDatasetID         string
	RedditCommentsDatasetID string
	DatabaseURL             string
	Model                   string
	Port                    string
	PollMaxAttempts         int
	PollDelaySeconds        int
}

func Load() *Config {
	return &Config{
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		BrightDataAPIKey:        getEnv("BRIGHTDATA_API_KEY", ""),
		RedditDatasetID:         getEnv("REDDIT_DATASET_ID", ""),
		RedditCommentsDatasetID: getEnv("REDDIT_COMMENTS_DATASET_ID", ""),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		Model:                   getEnv("MODEL", "gpt-4o"),
		Port:                    getEnv("PORT", "8081"),
		PollMaxAttempts:         getEnvAsInt("SNAPSHOT_POLL_MAX_ATTEMPTS", 60),
		PollDelaySeconds:        getEnvAsInt("SNAPSHOT_POLL_DELAY_SECONDS", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
