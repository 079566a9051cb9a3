package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the client and the stub server.
type Config struct {
	API    APIConfig
	Tokens TokenStoreConfig
	Redis  RedisConfig
	Logger LoggerConfig
	Stub   StubConfig
}

// APIConfig controls how the client reaches the remote locker API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// TokenStoreConfig selects the credential store backend.
type TokenStoreConfig struct {
	// Backend is "file" or "redis".
	Backend string
	// Path locates the file-backed store.
	Path string
}

// RedisConfig holds Redis connection values for the shared token store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// StubConfig configures the local stub API server.
type StubConfig struct {
	Host                   string
	Port                   string
	JWTSecret              string
	RefreshSecret          string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLMinutes int
	BcryptCost             int
	OTPTTLSeconds          int
	RatePerHour            float64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ratePerHour, err := strconv.ParseFloat(getEnv("STUB_RATE_PER_HOUR", "50.00"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STUB_RATE_PER_HOUR: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8000"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
		},
		Tokens: TokenStoreConfig{
			Backend: getEnv("TOKEN_STORE_BACKEND", "file"),
			Path:    getEnv("TOKEN_STORE_PATH", defaultTokenPath()),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stub: StubConfig{
			Host:                   getEnv("STUB_HOST", "0.0.0.0"),
			Port:                   getEnv("STUB_PORT", "8000"),
			JWTSecret:              getEnv("STUB_JWT_SECRET", "dev-secret"),
			RefreshSecret:          getEnv("STUB_REFRESH_SECRET", "dev-refresh-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("STUB_ACCESS_TOKEN_TTL_MINUTES", 30),
			RefreshTokenTTLMinutes: getEnvAsInt("STUB_REFRESH_TOKEN_TTL_MINUTES", 60*24),
			BcryptCost:             getEnvAsInt("STUB_BCRYPT_COST", 12),
			OTPTTLSeconds:          getEnvAsInt("STUB_OTP_TTL_SECONDS", 300),
			RatePerHour:            ratePerHour,
		},
	}

	return cfg, nil
}

// Timeout returns the configured per-request timeout duration.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Addr returns the stub server bind address.
func (s StubConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// OTPTTL returns the OTP validity window.
func (s StubConfig) OTPTTL() time.Duration {
	return time.Duration(s.OTPTTLSeconds) * time.Second
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".locker-client/tokens.json"
	}
	return filepath.Join(home, ".locker-client", "tokens.json")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
