package config

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Vector backends.
const (
	BackendPgVector = "pgvector"
	BackendChromem  = "chromem"
)

// AI providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port     string
	AppName  string
	LogLevel slog.Level

	// Database (optional with the chromem backend; enables the audit trail)
	DatabaseURL string

	// Vector search
	VectorBackend      string
	ChromemPath        string // empty = in memory
	EmbeddingDimension int

	// AI provider
	AIProvider string

	// OpenAI-compatible API
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIEmbedModel string

	// Ollama embed endpoint
	OllamaEmbedURL   string
	OllamaEmbedModel string
	OllamaEmbedToken string // Bearer token for Ollama Cloud (empty = local)

	// Ollama chat endpoint
	OllamaChatURL   string
	OllamaChatToken string // Bearer token for Ollama Cloud (empty = local)

	// Models per wisdom level
	ModelMedium        string
	ModelHigh          string
	ModelVeryHigh      string
	ReformulationModel string

	// Retrieval
	MinTrustScore float64

	// Ingestion
	ChunkSize    int
	ChunkOverlap int
	MaxUploadMB  int

	// Token streams
	StreamBuffer    int
	StreamRetention time.Duration

	// MCP
	MCPEnabled bool
	MCPPort    string

	// Frontend
	FrontendURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	medium := envOrDefault("MODEL_MEDIUM", "qwen3")
	return &Config{
		Port:     envOrDefault("PORT", "3001"),
		AppName:  envOrDefault("APP_NAME", "KB Answers"),
		LogLevel: envOrDefaultLevel("LOG_LEVEL", slog.LevelInfo),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		VectorBackend:      strings.ToLower(envOrDefault("VECTOR_BACKEND", BackendChromem)),
		ChromemPath:        os.Getenv("CHROMEM_PATH"),
		EmbeddingDimension: envOrDefaultInt("EMBEDDING_DIMENSION", 1024),

		AIProvider: strings.ToLower(envOrDefault("AI_PROVIDER", ProviderOllama)),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenAIEmbedModel: envOrDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		OllamaEmbedURL:   envOrDefault("OLLAMA_EMBED_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaEmbedModel: envOrDefault("OLLAMA_EMBED_MODEL", "bge-m3"),
		OllamaEmbedToken: os.Getenv("OLLAMA_EMBED_TOKEN"),

		OllamaChatURL:   envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaChatToken: os.Getenv("OLLAMA_CHAT_TOKEN"),

		ModelMedium:        medium,
		ModelHigh:          envOrDefault("MODEL_HIGH", medium),
		ModelVeryHigh:      envOrDefault("MODEL_VERY_HIGH", envOrDefault("MODEL_HIGH", medium)),
		ReformulationModel: envOrDefault("REFORMULATION_MODEL", medium),

		MinTrustScore: envOrDefaultFloat("MIN_TRUST_SCORE", 0.5),

		ChunkSize:    envOrDefaultInt("CHUNK_SIZE", 1000),
		ChunkOverlap: envOrDefaultInt("CHUNK_OVERLAP", 200),
		MaxUploadMB:  envOrDefaultInt("MAX_UPLOAD_MB", 32),

		StreamBuffer:    envOrDefaultInt("STREAM_BUFFER", 4096),
		StreamRetention: time.Duration(envOrDefaultInt("STREAM_RETENTION_SECONDS", 300)) * time.Second,

		MCPEnabled: envOrDefaultBool("MCP_ENABLED", true),
		MCPPort:    envOrDefault("MCP_PORT", "3002"),

		FrontendURL: envOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}
}

// DSN returns the database URL for logging with the password masked.
func (c *Config) DSN() string {
	if c.DatabaseURL == "" {
		return ""
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
