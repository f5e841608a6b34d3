package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY,notEmpty,required"`
	JWTSecret       string `env:"JWT_SECRET,notEmpty,required"`
	DatabaseURL     string `env:"DATABASE_URL" envDefault:"memochat.db"`
	HTTPPort        string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	ChatModel       string `env:"CHAT_MODEL" envDefault:"claude-3-5-haiku-latest"`
	AllowedOrigins  string `env:"ALLOWED_ORIGINS" envDefault:"*"`

	// Bounds on context assembly: how many memory rows are considered and
	// how large the rendered prompt prefix may grow.
	MemoryLoadLimit    int `env:"MEMORY_LOAD_LIMIT" envDefault:"100"`
	ContextBudgetChars int `env:"CONTEXT_BUDGET_CHARS" envDefault:"2000"`
}

var AppConfig Config

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	if err := env.Parse(&AppConfig); err != nil {
		logrus.Fatalf("Failed to parse configuration: %v", err)
	}

	level, err := logrus.ParseLevel(AppConfig.LogLevel)
	if err != nil {
		logrus.Warnf("Unknown LOG_LEVEL %q, defaulting to info", AppConfig.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
