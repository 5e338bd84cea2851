package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read on startup when present.
const DefaultEnvFile = ".env"

type Config struct {
	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`

	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8000"`
	CORSOrigin     string        `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	RequestTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"0s"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"./data/database.sqlite"`
	SeedDummy   bool   `env:"SEED_DUMMY" envDefault:"false"`

	Gemini GeminiConfig
	Advice AdviceConfig
}

type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	BaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Model   string `env:"GEMINI_MODEL" envDefault:"gemma-3-1b-it"`
}

type AdviceConfig struct {
	Language string `env:"ADVICE_LANGUAGE" envDefault:"Korean"`
	Tone     string `env:"ADVICE_TONE" envDefault:"friendly"`
}

// Load reads DefaultEnvFile (if any) and then the process environment.
func Load() (Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom is Load with an explicit env file. Variables already set in the
// process environment are not overridden by the file.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.RequestTimeout < 0 {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: negative duration %s", cfg.RequestTimeout)
	}
	return cfg, nil
}
