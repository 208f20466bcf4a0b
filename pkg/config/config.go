package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Database DatabaseConfig

	// Redis (optional: distributed rate limit + overview cache)
	Redis RedisConfig

	// Data provider
	AlphaVantage AlphaVantageConfig

	// Ingestion agent
	Agent AgentConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds store configuration
type DatabaseConfig struct {
	Driver     string // postgres, sqlite
	URL        string
	SQLitePath string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Reconnect policy
	ConnectRetries    int
	ConnectRetryDelay time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AlphaVantageConfig holds data provider configuration
type AlphaVantageConfig struct {
	APIKey               string
	BaseURL              string
	MaxRequestsPerMinute int
	RequestTimeout       time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	RateLimitBackend     string // memory, redis
	OverviewCacheTTL     time.Duration
}

// AgentConfig holds watchlist agent configuration
type AgentConfig struct {
	TargetSize     int
	InitialBatch   int
	TopUpSize      int
	CycleInterval  time.Duration
	RefreshPace    time.Duration
	VerifySchedule string
	SelectionFile  string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "5001"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Driver:            getEnv("DB_DRIVER", "postgres"),
			URL:               getEnv("DATABASE_URL", ""),
			SQLitePath:        getEnv("SQLITE_PATH", "sectorwatch.db"),
			MaxConns:          getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:          getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "10s"),
			ConnectRetries:    getEnvAsInt("DB_CONNECT_RETRIES", 3),
			ConnectRetryDelay: getEnvAsDuration("DB_CONNECT_RETRY_DELAY", "1s"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:               getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:              getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			MaxRequestsPerMinute: getEnvAsInt("AV_MAX_REQUESTS_PER_MINUTE", 75),
			RequestTimeout:       getEnvAsDuration("AV_REQUEST_TIMEOUT", "10s"),
			MaxRetries:           getEnvAsInt("AV_MAX_RETRIES", 3),
			RetryDelay:           getEnvAsDuration("AV_RETRY_DELAY", "1s"),
			RateLimitBackend:     getEnv("AV_RATE_LIMIT_BACKEND", "memory"),
			OverviewCacheTTL:     getEnvAsDuration("AV_OVERVIEW_CACHE_TTL", "24h"),
		},

		Agent: AgentConfig{
			TargetSize:     getEnvAsInt("AGENT_TARGET_SIZE", 35),
			InitialBatch:   getEnvAsInt("AGENT_INITIAL_BATCH", 35),
			TopUpSize:      getEnvAsInt("AGENT_TOPUP_SIZE", 10),
			CycleInterval:  getEnvAsDuration("AGENT_CYCLE_INTERVAL", "15m"),
			RefreshPace:    getEnvAsDuration("AGENT_REFRESH_PACE", "0s"),
			VerifySchedule: getEnv("AGENT_VERIFY_SCHEDULE", "0 30 6 * * *"),
			SelectionFile:  getEnv("SELECTION_CONFIG", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile loads an explicit env file first, then reads configuration as Load does.
// Variables already set in the environment win over the file.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return Load()
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.AlphaVantage.APIKey == "" {
		return fmt.Errorf("ALPHA_VANTAGE_API_KEY is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres driver")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: postgres, sqlite")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.AlphaVantage.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("AV_MAX_REQUESTS_PER_MINUTE must be positive")
	}

	if c.AlphaVantage.RateLimitBackend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("AV_RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true")
	}

	if c.Agent.TargetSize <= 0 {
		return fmt.Errorf("AGENT_TARGET_SIZE must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
