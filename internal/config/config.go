package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the configuration for the tf-idf service
type Config struct {
	Engine  EngineConfig
	Corpus  CorpusConfig
	Storage StorageConfig
	Server  ServerConfig
}

// EngineConfig holds tf-idf computation settings
type EngineConfig struct {
	Smoothing string `validate:"oneof=raw log"`
	Workers   int    `validate:"min=1,max=256"`
	TopK      int    `validate:"min=1"`
}

// CorpusConfig holds review ingestion and tokenization settings
type CorpusConfig struct {
	Source string
	// Dir is the only directory API clients may name sources in. Empty disables client sources.
	Dir            string
	GroupBy        string `validate:"oneof=style decile review"`
	MinTokenLength int    `validate:"min=1"`
	Stem           bool
	StopWords      bool
	NGram          int `validate:"min=1,max=5"`
	RespectRobots  bool
	FetchTimeout   time.Duration `validate:"gt=0"`
	UserAgent      string        `validate:"required"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Driver     string `validate:"oneof=file sqlite"`
	Dir        string `validate:"required_if=Driver file"`
	SQLitePath string `validate:"required_if=Driver sqlite"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `validate:"required"`
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Engine: EngineConfig{
			Smoothing: GetStringEnv("TFIDF_SMOOTHING", "raw"),
			Workers:   GetIntEnv("TFIDF_WORKERS", 1),
			TopK:      GetIntEnv("TFIDF_TOP_K", 10),
		},
		Corpus: CorpusConfig{
			Source:         GetStringEnv("CORPUS_SOURCE", ""),
			Dir:            GetStringEnv("CORPUS_DIR", ""),
			GroupBy:        GetStringEnv("CORPUS_GROUP_BY", "style"),
			MinTokenLength: GetIntEnv("CORPUS_MIN_TOKEN_LENGTH", 3),
			Stem:           GetBoolEnv("CORPUS_STEM", false),
			StopWords:      GetBoolEnv("CORPUS_STOP_WORDS", true),
			NGram:          GetIntEnv("CORPUS_NGRAM", 1),
			RespectRobots:  GetBoolEnv("CORPUS_RESPECT_ROBOTS", true),
			FetchTimeout:   GetDurationEnv("CORPUS_FETCH_TIMEOUT", 30*time.Second),
			UserAgent:      GetStringEnv("CORPUS_USER_AGENT", "brewlens/1.0"),
		},
		Storage: StorageConfig{
			Driver:     GetStringEnv("STORAGE_DRIVER", "file"),
			Dir:        GetStringEnv("STORAGE_DIR", "./data"),
			SQLitePath: GetStringEnv("STORAGE_SQLITE_PATH", "./data/analyses.db"),
		},
		Server: ServerConfig{
			Addr: GetStringEnv("SERVER_ADDR", ":8080"),
		},
	}
}

// Validate checks every section against its constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
