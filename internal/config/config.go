package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Payload CMS (job/media record store + identity)
	CMSBaseURL      string
	CMSServiceToken string

	// Gemini
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	VectorDim      int

	// Qdrant
	QdrantURL    string
	QdrantAPIKey string

	// PDF render sidecar (poppler)
	RenderServiceURL string

	// Upload limits
	MaxFileSize  int64
	AllowedTypes []string

	// Chunking / retrieval defaults
	MaxChunkSize    int
	ChunkOverlap    int
	SearchLimit     int
	ScoreThreshold  float64
	PageConcurrency int

	// External call resilience
	CallTimeout int // seconds
	MaxRetries  int

	// Per-IP request rate limiting
	RateLimitReqs   int
	RateLimitWindow int // seconds

	// Redis / Asynq
	RedisURL      string
	RedisPassword string
	RedisDB       int
	WorkerCount   int

	// Reconciliation sweep
	SweepIntervalMinutes int
	JobStaleMinutes      int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		CMSBaseURL:      getEnv("CMS_BASE_URL", "http://app-admin:3000/cms"),
		CMSServiceToken: getEnv("CMS_SERVICE_TOKEN", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDim:      getEnvInt("VECTOR_DIM", 384),

		QdrantURL:    getEnv("QDRANT_URL", "http://qdrant:6333"),
		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),

		RenderServiceURL: getEnv("RENDER_SERVICE_URL", "http://pdf-render:8001"),

		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		AllowedTypes: strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf,image/png,image/jpeg"), ","),

		MaxChunkSize:    getEnvInt("MAX_CHUNK_SIZE", 200),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 2),
		SearchLimit:     getEnvInt("SEARCH_LIMIT", 50),
		ScoreThreshold:  getEnvFloat64("SCORE_THRESHOLD", 0.5),
		PageConcurrency: getEnvInt("PAGE_CONCURRENCY", 4),

		CallTimeout: getEnvInt("EXTERNAL_CALL_TIMEOUT", 120),
		MaxRetries:  getEnvInt("EXTERNAL_CALL_RETRIES", 3),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		WorkerCount:   getEnvInt("WORKER_COUNT", 10),

		SweepIntervalMinutes: getEnvInt("SWEEP_INTERVAL_MINUTES", 15),
		JobStaleMinutes:      getEnvInt("JOB_STALE_MINUTES", 60),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be positive, got %d", cfg.VectorDim)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
