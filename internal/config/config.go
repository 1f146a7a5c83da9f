package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all client configuration loaded from environment
// variables.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	DB     DBConfig
	Replay ReplayConfig
	Router RouterConfig
	Model  string
}

// ServerConfig holds the agent server endpoints and credentials.
type ServerConfig struct {
	WSEndpoint string
	APIBase    string
	Token      string //nolint:gosec // session token config
	DeviceID   string
}

// RedisConfig holds the optional pub/sub feed settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // Redis connection config
	DB       int
}

// DBConfig holds the optional direct-database log source settings.
type DBConfig struct {
	DSN string
}

// ReplayConfig holds replay pacing and the offline cache location.
type ReplayConfig struct {
	Delay     time.Duration
	CachePath string
}

// RouterConfig holds action-routing settings.
type RouterConfig struct {
	Debounce time.Duration
}

// Load reads configuration from environment variables. Defaults target
// a local development server.
func Load() (*Config, error) {
	redisDB, err := getEnvInt("RELIVE_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	delay, err := getEnvDuration("RELIVE_REPLAY_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	debounce, err := getEnvDuration("RELIVE_ROUTE_DEBOUNCE", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			WSEndpoint: getEnv("RELIVE_WS_URL", "ws://localhost:8000/ws"),
			APIBase:    getEnv("RELIVE_API_URL", "http://localhost:8000/api"),
			Token:      getEnv("RELIVE_TOKEN", ""),
			DeviceID:   getEnv("RELIVE_DEVICE_ID", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("RELIVE_REDIS_ADDR", ""),
			Password: getEnv("RELIVE_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("RELIVE_DB_DSN", ""),
		},
		Replay: ReplayConfig{
			Delay:     delay,
			CachePath: getEnv("RELIVE_CACHE_PATH", defaultCachePath()),
		},
		Router: RouterConfig{
			Debounce: debounce,
		},
		Model: getEnv("RELIVE_MODEL", "claude-sonnet-4"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.WSEndpoint == "" {
		return errors.New("RELIVE_WS_URL must not be empty")
	}
	if c.Server.APIBase == "" {
		return errors.New("RELIVE_API_URL must not be empty")
	}
	if c.Replay.Delay < 0 {
		return fmt.Errorf("RELIVE_REPLAY_DELAY must be >= 0, got %s", c.Replay.Delay)
	}
	if c.Router.Debounce < 0 {
		return fmt.Errorf("RELIVE_ROUTE_DEBOUNCE must be >= 0, got %s", c.Router.Debounce)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("RELIVE_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	return nil
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "relive-cache.db"
	}
	return filepath.Join(home, ".relive", "cache.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}
