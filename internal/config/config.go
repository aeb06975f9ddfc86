// Package config loads process configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the search service.
type Config struct {
	Port     string
	Version  string
	LogLevel string

	DatabaseURL string // facet/SKU relational store (Postgres)

	EmbeddingBaseURL       string
	EmbeddingModel         string
	EmbeddingTimeoutSecs   float64
	EmbedBatchSize         int
	BuildWorkerPoolSize    int

	IndexPath string
	LookupPath string
	MetaPath  string
	VocabPath string // optional

	DefaultK               int
	DefaultCandidatePool   int
	DefaultPhoneticBoost   float64
	ProductPhoneticBoost   float64
	FuzzyJaroWeight        float64
	PhoneticCodeMaxEdits   int
	PhoneticApproxBoost    float64

	OnlyActiveFacetsDefault bool
}

// Load initializes and returns application configuration.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Version:  getEnv("VERSION", "1.0.0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		EmbeddingBaseURL:     getEnv("EMBEDDING_BASE_URL", "http://localhost:11434"),
		EmbeddingModel:       getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingTimeoutSecs: getEnvFloat("OLLAMA_TIMEOUT_SECONDS", 30.0),
		EmbedBatchSize:       getEnvInt("EMBED_BATCH_SIZE", 1),
		BuildWorkerPoolSize:  getEnvInt("BUILD_WORKER_POOL_SIZE", 4),

		IndexPath:  getEnv("INDEX_PATH", "data/index.bin"),
		LookupPath: getEnv("LOOKUP_PATH", "data/lookup.json"),
		MetaPath:   getEnv("META_PATH", "data/meta.json"),
		VocabPath:  os.Getenv("VOCAB_PATH"),

		DefaultK:             getEnvInt("DEFAULT_K", 5),
		DefaultCandidatePool: getEnvInt("DEFAULT_CANDIDATE_POOL", 150),
		DefaultPhoneticBoost: getEnvFloat("DEFAULT_PHONETIC_BOOST", 0.2),
		ProductPhoneticBoost: getEnvFloat("PRODUCT_PHONETIC_BOOST", 0.25),
		FuzzyJaroWeight:      getEnvFloat("FUZZY_JARO_WEIGHT", 50.0),
		PhoneticCodeMaxEdits: getEnvInt("PHONETIC_CODE_MAX_EDITS", 1),
		PhoneticApproxBoost:  getEnvFloat("PHONETIC_APPROX_BOOST", 0.12),

		OnlyActiveFacetsDefault: getEnvBool("ONLY_ACTIVE_FACETS", false),
	}
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default fallback.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format.
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "catalogue-search").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
