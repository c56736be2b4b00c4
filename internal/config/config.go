// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`

	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AdviceModel         string `env:"ADVICE_MODEL" envDefault:"gpt-4o-mini"`
	AdviceFallbackModel string `env:"ADVICE_FALLBACK_MODEL" envDefault:"gpt-4o-mini"`
}

func Load() (Config, error) {
	_ = godotenv.Load()
	return env.ParseAs[Config]()
}
