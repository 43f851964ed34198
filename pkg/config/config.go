package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	GithubToken      string
	GithubAPIURL     string
	GithubGraphQLURL string

	// DefaultUser is the fallback identity when a sync is requested for an
	// unknown nickname.
	DefaultUser string

	APITimeout      time.Duration
	APIMaxRetries   int
	CacheTTL        time.Duration
	LookbackDays    int
	MonitorInterval time.Duration
}

func LoadConfig() (Config, error) {
	// A .env file is optional; the environment itself is the authority
	_ = godotenv.Load()

	return Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "contributions"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		GithubToken:      getEnv("GITHUB_TOKEN", ""),
		GithubAPIURL:     getEnv("GITHUB_API_URL", "https://api.github.com"),
		GithubGraphQLURL: getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),

		DefaultUser: getEnv("DEFAULT_USER", "dabbun"),

		APITimeout:      time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 30)) * time.Second,
		APIMaxRetries:   getEnvInt("API_MAX_RETRIES", 3),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_MINUTES", 10)) * time.Minute,
		LookbackDays:    getEnvInt("LOOKBACK_DAYS", 30),
		MonitorInterval: time.Duration(getEnvInt("MONITOR_INTERVAL_MINUTES", 10)) * time.Minute,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
