// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Database holds PostgreSQL connection settings.
type Database struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// DSN builds a libpq-compatible connection string.
func (c Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Redis holds settings for the drift queue.
type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// Log holds logger settings.
type Log struct {
	Level  string
	Format string
}

// Config is the full service configuration.
type Config struct {
	Port     string
	Database Database
	Redis    Redis
	Log      Log
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	cfg.Port = getEnv("PORT", "8080")

	cfg.Database.Enabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnv("DB_NAME", "poros")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	var err error
	if cfg.Database.Port, err = getInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	maxConns, err := getInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, err
	}
	minConns, err := getInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	cfg.Database.MaxConns, cfg.Database.MinConns = int32(maxConns), int32(minConns)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	cfg.Redis.QueueKey = getEnv("DRIFT_QUEUE_KEY", "poros:drift:pending")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, v)
	}
	return n, nil
}
