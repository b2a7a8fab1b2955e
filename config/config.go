package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	JWTSecret     []byte
	Port          string
	SweepInterval time.Duration
	RateLimitRPS  int
}

func LoadConfig() (*Config, error) {
	// Load .env file if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		Port:          os.Getenv("PORT"),
		SweepInterval: 30 * time.Second,
		RateLimitRPS:  10,
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.SweepInterval = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.Atoi(v); err == nil && rps > 0 {
			cfg.RateLimitRPS = rps
		}
	}

	return cfg, nil
}
