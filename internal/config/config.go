package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	OpenAIAPIKey  string
	AllowedOrigin string
	Model         string
	// Currency data source (National Bank of Ukraine open-data API)
	NBUBaseURL string
	// Database
	DatabaseURL string
	// File-based session persistence when no database is configured
	SessionDataDir string
	// Agent prompt/tool spec
	AgentPromptFile string
	// Per-session transcript cap
	MaxHistoryMessages int
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:               getEnvDefault("PORT", "8000"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		AllowedOrigin:      getEnvDefault("ALLOWED_ORIGIN", "*"),
		Model:              getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		NBUBaseURL:         getEnvDefault("NBU_BASE_URL", "https://bank.gov.ua/NBUStatService/v1"),
		DatabaseURL:        os.Getenv("DB_URL"),
		SessionDataDir:     getEnvDefault("SESSION_DATA_DIR", "data/sessions"),
		AgentPromptFile:    getEnvDefault("AGENT_PROMPT_FILE", "prompts/agent.yaml"),
		MaxHistoryMessages: getEnvIntDefault("MAX_HISTORY_MESSAGES", 20),
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; chat requests will fail until provided")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
