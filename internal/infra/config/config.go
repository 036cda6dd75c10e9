package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env               string
	Port              string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	OllamaURL         string
	EmbeddingModel    string
	GeneratorModel    string
	PromptVersion     string
	AnswerMaxTokens   int
	SearchLimit       int
	AnswerTopK        int
	AnswerCacheSize   int
	AnswerCacheTTL    time.Duration
	CorpusDir         string
	WatchCorpus       bool
	IngestConcurrency int
	IngestRatePerSec  int
	WorkerPollEvery   time.Duration
}

func Load() *Config {
	return &Config{
		Env:               getEnv("ENV", "development"),
		Port:              getEnv("PORT", "9020"),
		DBHost:            getEnv("DB_HOST", "policy-db"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "policy_user"),
		DBPassword:        getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "policy_password"),
		DBName:            getEnv("DB_NAME", "policy_db"),
		OllamaURL:         getEnvWithAlt("OLLAMA_URL", "OLLAMA_EXTERNAL_URL", "http://ollama:11434"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		GeneratorModel:    getEnv("GENERATOR_MODEL", "gemma3:4b"),
		PromptVersion:     getEnv("POLICY_PROMPT_VERSION", "policy-v1"),
		AnswerMaxTokens:   getEnvInt("POLICY_ANSWER_MAX_TOKENS", 768),
		SearchLimit:       getEnvInt("POLICY_SEARCH_LIMIT", 16),
		AnswerTopK:        getEnvInt("POLICY_ANSWER_TOP_K", 4),
		AnswerCacheSize:   getEnvInt("POLICY_ANSWER_CACHE_SIZE", 256),
		AnswerCacheTTL:    getEnvDuration("POLICY_ANSWER_CACHE_TTL", 10*time.Minute),
		CorpusDir:         getEnv("POLICY_CORPUS_DIR", "/srv/policy-corpus"),
		WatchCorpus:       getEnv("POLICY_WATCH_CORPUS", "true") == "true",
		IngestConcurrency: getEnvInt("POLICY_INGEST_CONCURRENCY", 4),
		IngestRatePerSec:  getEnvInt("POLICY_INGEST_RATE_PER_SEC", 8),
		WorkerPollEvery:   getEnvDuration("POLICY_WORKER_POLL_INTERVAL", 2*time.Second),
	}
}

// DSN renders the PostgreSQL connection string for pgxpool.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
