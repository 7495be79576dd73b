// Package config provides configuration for the agent runtime.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration. It is read once at process start
// and injected into components at construction; changing the kill switch or
// any threshold requires a restart.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Ops kill switch. When false every run is rejected before any state
	// is created.
	AgentEnabled bool

	// LLM settings
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration
	LLMMode    string // "MOCK" selects the canned client

	// Budgets and limits
	MaxTokensPerRun   int
	MaxPromptChars    int
	ToolTimeout       time.Duration
	RateLimitMaxRuns  int
	RateLimitWindow   time.Duration
	RetentionMaxAge   time.Duration
	RetentionInterval time.Duration

	// Retrieval settings
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Embedding settings
	OllamaURL      string
	EmbeddingModel string
	EmbeddingDims  int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "file:taskpilot.db?cache=shared&mode=rwc"),
		AgentEnabled:      getEnvBool("AGENT_ENABLED", true),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.groq.com/openai"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMTimeout:        getEnvDuration("LLM_TIMEOUT_MS", 30*time.Second),
		LLMMode:           getEnv("LLM_MODE", ""),
		MaxTokensPerRun:   getEnvInt("MAX_TOKENS_PER_RUN", 2000),
		MaxPromptChars:    getEnvInt("MAX_PROMPT_CHARS", 3000),
		ToolTimeout:       getEnvDuration("TOOL_TIMEOUT_MS", 10*time.Second),
		RateLimitMaxRuns:  getEnvInt("RATE_LIMIT_MAX_RUNS", 20),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW_MS", 10*time.Minute),
		RetentionMaxAge:   getEnvDuration("RETENTION_MAX_AGE_MS", 30*24*time.Hour),
		RetentionInterval: getEnvDuration("RETENTION_INTERVAL_MS", time.Hour),
		QdrantURL:         getEnv("QDRANT_URL", ""),
		QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:  getEnv("QDRANT_COLLECTION", "documents"),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDims:     getEnvInt("EMBEDDING_DIMS", 768),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
