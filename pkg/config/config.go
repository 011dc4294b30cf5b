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
	Env string // development, staging, production

	// External APIs
	Kiwoom KiwoomConfig
	Gemini GeminiConfig

	// Trading
	Trading TradingConfig

	// Database (trade journal, optional)
	Database DatabaseConfig

	// Status API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// KiwoomConfig holds Kiwoom (키움증권) REST/WebSocket API configuration
type KiwoomConfig struct {
	AppKey       string
	SecretKey    string
	AccountNo    string
	BaseURL      string
	WebsocketURL string

	// Per api-id minimum interval between requests
	RequestInterval time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// GeminiConfig holds the advisory model configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// TradingConfig holds capital and rules configuration
type TradingConfig struct {
	InitialCapital int64
	RulesPath      string
}

// DatabaseConfig holds PostgreSQL configuration for the trade journal.
// The journal is disabled when URL is empty.
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// APIConfig holds the read-only status API configuration
type APIConfig struct {
	Enabled bool
	Port    string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Kiwoom: KiwoomConfig{
			AppKey:          getEnv("KIWOOM_APP_KEY", ""),
			SecretKey:       getEnv("KIWOOM_SECRET_KEY", ""),
			AccountNo:       getEnv("KIWOOM_ACCOUNT_NO", ""),
			BaseURL:         getEnv("KIWOOM_BASE_URL", "https://api.kiwoom.com"),
			WebsocketURL:    getEnv("KIWOOM_WS_URL", "wss://api.kiwoom.com:10000/api/dostk/websocket"),
			RequestInterval: getEnvAsDuration("KIWOOM_REQUEST_INTERVAL", "1s"),
			MaxRetries:      getEnvAsInt("KIWOOM_MAX_RETRIES", 3),
			RetryDelay:      getEnvAsDuration("KIWOOM_RETRY_DELAY", "3s"),
		},

		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		},

		Trading: TradingConfig{
			InitialCapital: getEnvAsInt64("TRADING_INITIAL_CAPITAL", 10_000_000),
			RulesPath:      getEnv("TRADING_RULES_PATH", "config/rules.yaml"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		API: APIConfig{
			Enabled: getEnvAsBool("API_ENABLED", true),
			Port:    getEnv("API_PORT", "8087"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("TRADING_INITIAL_CAPITAL must be positive")
	}

	if c.Kiwoom.RequestInterval <= 0 {
		return fmt.Errorf("KIWOOM_REQUEST_INTERVAL must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
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
