package config

import (
	"os"
	"strconv"
)

// Config carries the process-level settings. Adapter-specific settings
// (DB_URL, REDIS_URL) are read by the adapters themselves.
type Config struct {
	Port      int
	JWTSecret string
	Debug     bool
}

func Load() Config {
	port := 8080
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return Config{
		Port:      port,
		JWTSecret: os.Getenv("JWT_SECRET"),
		Debug:     os.Getenv("APP_DEBUG") == "true",
	}
}
