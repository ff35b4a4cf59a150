package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvVars struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"dev"`
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`

	// groq | openai | ollama | gemini | none
	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"groq"`
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"15s"`

	GroqAPIKey  string `envconfig:"GROQ_API_KEY"`
	GroqModel   string `envconfig:"GROQ_MODEL" default:"llama-3.1-8b-instant"`
	GroqBaseURL string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`

	// Ollama (local LLM) configuration
	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel   string `envconfig:"OLLAMA_MODEL" default:"qwen3:0.6b"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	MaxTextLength int `envconfig:"MAX_TEXT_LENGTH" default:"2000"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitRPS       float64  `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst     int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	APIKey             string   `envconfig:"API_KEY"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	DefinitionsDir string `envconfig:"DEFINITIONS_DIR"`
}

// LoadEnv reads .env when present, then the process environment.
func LoadEnv() (*EnvVars, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var v EnvVars
	if err := envconfig.Process("", &v); err != nil {
		return nil, err
	}
	v.LLMProvider = strings.ToLower(strings.TrimSpace(v.LLMProvider))
	return &v, nil
}
