package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Tutor    TutorConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SessionStore       string // "memory" or "redis"
	SessionTTL         time.Duration
	EmbedTopic         string // watermill topic carrying chunk embed jobs
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL     string
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	GeminiAPIKey      string
}

// TutorConfig carries the dialogue engine knobs. Defaults match the
// documented rubric; overriding the weights requires keeping them summing
// to 1.0.
type TutorConfig struct {
	RetrievalTopK     int
	MinRelevance      float64
	FusionK           int
	MaxTurns          int
	UpstreamTimeout   time.Duration
	RetryBackoff      time.Duration
	WeightAccuracy    float64
	WeightCoherence   float64
	WeightEvidence    float64
	WeightIntegration float64
	TierStrong        float64
	TierAdequate      float64
	TierPartial       float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionStore:       getEnv("SESSION_STORE", "memory"),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 1*time.Hour),
			EmbedTopic:         getEnv("EMBED_DOCUMENT_TOPIC_NAME", "EMBED_DOCUMENT_CHUNKS"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Tutor: TutorConfig{
			RetrievalTopK:     getEnvAsInt("TUTOR_RETRIEVAL_TOP_K", 5),
			MinRelevance:      getEnvAsFloat("TUTOR_MIN_RELEVANCE", 0.35),
			FusionK:           getEnvAsInt("TUTOR_FUSION_K", 60),
			MaxTurns:          getEnvAsInt("TUTOR_MAX_TURNS", 12),
			UpstreamTimeout:   getEnvAsDuration("TUTOR_UPSTREAM_TIMEOUT", 45*time.Second),
			RetryBackoff:      getEnvAsDuration("TUTOR_RETRY_BACKOFF", 250*time.Millisecond),
			WeightAccuracy:    getEnvAsFloat("TUTOR_WEIGHT_ACCURACY", 0.35),
			WeightCoherence:   getEnvAsFloat("TUTOR_WEIGHT_COHERENCE", 0.25),
			WeightEvidence:    getEnvAsFloat("TUTOR_WEIGHT_EVIDENCE", 0.15),
			WeightIntegration: getEnvAsFloat("TUTOR_WEIGHT_INTEGRATION", 0.25),
			TierStrong:        getEnvAsFloat("TUTOR_TIER_STRONG", 3.5),
			TierAdequate:      getEnvAsFloat("TUTOR_TIER_ADEQUATE", 2.5),
			TierPartial:       getEnvAsFloat("TUTOR_TIER_PARTIAL", 1.5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
