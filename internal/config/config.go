package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Env         string
	DatabaseURL string
	Port        string

	// External provider credentials. Both are required: a missing key is a
	// configuration error at startup, not a runtime API error.
	TMDBToken    string
	OpenAIAPIKey string

	// EmbeddingModel and EmbeddingDims must match the vector column width.
	EmbeddingModel string
	EmbeddingDims  int

	// DefaultRegion is used for watch-provider lookups when a household has
	// no region configured.
	DefaultRegion string
}

// Load reads configuration from environment variables. It fails with a
// descriptive error when a required credential is absent or a placeholder.
func Load() (*Config, error) {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinefam")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	tmdbToken := os.Getenv("TMDB_API_TOKEN")
	if tmdbToken == "" || tmdbToken == "your-tmdb-token" {
		return nil, fmt.Errorf("TMDB_API_TOKEN is not set (or is still the example value); add your TMDB API read access token to .env")
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" || openAIKey == "sk-your-key" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set (or is still the example value); add your OpenAI API key to .env")
	}

	dims, err := strconv.Atoi(getEnv("EMBEDDING_DIMS", "1536"))
	if err != nil || dims <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMS must be a positive integer: %q", os.Getenv("EMBEDDING_DIMS"))
	}

	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		DatabaseURL:    dbURL,
		Port:           getEnv("PORT", "5005"),
		TMDBToken:      tmdbToken,
		OpenAIAPIKey:   openAIKey,
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:  dims,
		DefaultRegion:  getEnv("DEFAULT_REGION", "US"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
