package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	RedisURI       string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	Environment    string   // ENV: production, development, etc.

	// Suggestion Generator (OpenAI-compatible chat completion endpoint)
	SuggestionAPIURL  string
	SuggestionAPIKey  string
	SuggestionModel   string
	SuggestionTimeout time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{frontendURL}
	}

	timeoutSeconds, err := strconv.Atoi(getEnv("SUGGESTION_TIMEOUT_SECONDS", "15"))
	if err != nil || timeoutSeconds <= 0 {
		timeoutSeconds = 15
	}

	return &Config{
		MongoURI:          getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/whisperwall")),
		RedisURI:          getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:              getEnv("PORT", "8080"),
		FrontendURL:       frontendURL,
		AllowedOrigins:    allowedOrigins,
		Environment:       env,
		SuggestionAPIURL:  getEnv("SUGGESTION_API_URL", "https://api.openai.com/v1/chat/completions"),
		SuggestionAPIKey:  getEnv("SUGGESTION_API_KEY", ""),
		SuggestionModel:   getEnv("SUGGESTION_MODEL", "gpt-4o-mini"),
		SuggestionTimeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
