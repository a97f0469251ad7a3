package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port      string
	DBDSN     string
	JWTSecret string

	SystemPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL   string
	RabbitQueue string

	ChatContextWindowSize int
	GuestSessionTTLHours  int

	// Operator defaults for the query pipeline
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string

	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	GeminiAPIKey  string
	GeminiBaseURL string

	OllamaBaseURL string
}

func Load() Config {
	cfg := Config{
		Port:  getenv("PORT", "8000"),
		DBDSN: getenv("DB_DSN", "file:data/chatbot.db?_pragma=foreign_keys(1)"),

		// Empty secret means a random one is generated at startup; tokens
		// then do not survive a process restart.
		JWTSecret:      os.Getenv("JWT_SECRET"),
		SystemPassword: os.Getenv("SYSTEM_PASSWORD"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: getenv("RABBIT_QUEUE", "query_jobs"),

		ChatContextWindowSize: getint("CHAT_CONTEXT_WINDOW_SIZE", 20),
		GuestSessionTTLHours:  getint("GUEST_SESSION_TTL_HOURS", 12),

		LLMProvider: getenv("LLM_PROVIDER", "openai"),
		LLMModel:    getenv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),

		EmbeddingProvider: getenv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:    getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:   os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingBaseURL:  os.Getenv("EMBEDDING_BASE_URL"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		OllamaBaseURL: getenv("OLLAMA_BASE_URL", "http://localhost:11434"),
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
