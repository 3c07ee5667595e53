// Package config loads the server configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full server configuration.
type Config struct {
	Port       string   `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel   string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string   `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigin []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"kizuna"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"kizuna"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`

	// TextProvider selects the chat-completion backend: openai, ollama or
	// siliconflow. ImageProvider selects the image backend: openai,
	// siliconflow or none.
	TextProvider  string `envconfig:"TEXT_PROVIDER" default:"openai"`
	ImageProvider string `envconfig:"IMAGE_PROVIDER" default:"none"`

	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAIModel      string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIImageModel string `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`

	OllamaHost  string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llama3"`

	SiliconFlowAPIKey     string `envconfig:"SILICONFLOW_API_KEY" default:""`
	SiliconFlowBaseURL    string `envconfig:"SILICONFLOW_BASE_URL" default:""`
	SiliconFlowModel      string `envconfig:"SILICONFLOW_MODEL" default:"deepseek-ai/DeepSeek-V3"`
	SiliconFlowImageModel string `envconfig:"SILICONFLOW_IMAGE_MODEL" default:"Kwai-Kolors/Kolors"`

	// PromptTokenBudget only drives an advisory warning and metric; 0
	// disables it.
	PromptTokenBudget int `envconfig:"PROMPT_TOKEN_BUDGET" default:"8000"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	switch cfg.TextProvider {
	case "openai", "ollama", "siliconflow":
	default:
		return nil, fmt.Errorf("unknown TEXT_PROVIDER %q", cfg.TextProvider)
	}
	switch cfg.ImageProvider {
	case "openai", "siliconflow", "none":
	default:
		return nil, fmt.Errorf("unknown IMAGE_PROVIDER %q", cfg.ImageProvider)
	}
	return &cfg, nil
}
