package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Ai        AIConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	SecurityLogPath    string
	CorsAllowedOrigins string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "openai"
	LLMModel      string // e.g. "llama3.1", "gpt-4o-mini"
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
}

type ChatConfig struct {
	HistoryLimit        int
	AgentTimeoutSeconds int
	MaxToolRounds       int
}

type RateLimitConfig struct {
	ChatPerMinute    int
	HistoryPerMinute int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			SecurityLogPath:    getEnv("SECURITY_LOG_PATH", "logs/security_events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3.1"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		},
		Chat: ChatConfig{
			HistoryLimit:        getEnvAsInt("CHAT_HISTORY_LIMIT", 50),
			AgentTimeoutSeconds: getEnvAsInt("CHAT_AGENT_TIMEOUT_SECONDS", 30),
			MaxToolRounds:       getEnvAsInt("CHAT_MAX_TOOL_ROUNDS", 5),
		},
		RateLimit: RateLimitConfig{
			ChatPerMinute:    getEnvAsInt("RATE_LIMIT_CHAT_PER_MINUTE", 20),
			HistoryPerMinute: getEnvAsInt("RATE_LIMIT_HISTORY_PER_MINUTE", 60),
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
