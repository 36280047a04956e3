package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter the server reads.
type Config struct {
	Addr          string
	DBDSN         string
	JWTSecret     string
	RedisAddr     string // empty disables the cross-instance relay
	UploadDir     string
	PublicBaseURL string
	Debug         bool
}

// Load reads configuration from the environment. A .env file is
// loaded first if present (development convenience, never required).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBDSN:         os.Getenv("DB_DSN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Debug:         os.Getenv("DEBUG") != "",
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
