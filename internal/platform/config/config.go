package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	APIBaseURL         string `env:"API_BASE_URL" default:"http://localhost:8081"`
	StoreBackend       string `env:"STORE_BACKEND" default:"file"`
	StoreDir           string `env:"STORE_DIR"`
	StorePrefix        string `env:"STORE_PREFIX" default:"agromarket"`
	RedisURL           string `env:"REDIS_URL"`
	DatabaseURL        string `env:"DATABASE_URL"`
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	StorePassphrase    string `env:"STORE_PASSPHRASE"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	GatewayMaxAttempts int `env:"GATEWAY_MAX_ATTEMPTS" default:"3"`

	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT" default:"15s"`
	OTPResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" default:"60s"`
	RefreshInterval   time.Duration `env:"TOKEN_REFRESH_INTERVAL" default:"30s"`
	RefreshLeeway     time.Duration `env:"TOKEN_REFRESH_LEEWAY" default:"2m"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}
	if cfg.IsProduction() && u.Scheme != "https" {
		return errors.New("API_BASE_URL must use https in production")
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, file, redis, postgres, got %q", cfg.StoreBackend)
	}

	if cfg.StorePrefix == "" {
		return errors.New("STORE_PREFIX must not be empty")
	}

	if cfg.GatewayTimeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be positive")
	}
	if cfg.GatewayMaxAttempts < 1 {
		return errors.New("GATEWAY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.OTPResendCooldown < 0 {
		return errors.New("OTP_RESEND_COOLDOWN must not be negative")
	}
	if cfg.RefreshInterval <= 0 || cfg.RefreshLeeway <= 0 {
		return errors.New("TOKEN_REFRESH_INTERVAL and TOKEN_REFRESH_LEEWAY must be positive")
	}

	if cfg.TokenEncryptionKey != "" && cfg.StorePassphrase != "" {
		return errors.New("TOKEN_ENCRYPTION_KEY and STORE_PASSPHRASE are mutually exclusive")
	}
	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.IsProduction() && cfg.StoreBackend != BackendMemory && cfg.TokenEncryptionKey == "" && cfg.StorePassphrase == "" {
		return errors.New("TOKEN_ENCRYPTION_KEY or STORE_PASSPHRASE is required in production")
	}

	return nil
}

// SandboxConfig configures the local development backend.
type SandboxConfig struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"SANDBOX_PORT" default:"8081"`
	JWTSecret     string `env:"SANDBOX_JWT_SECRET"`
	NestResponses bool   `env:"SANDBOX_NEST_RESPONSES" default:"false"`
	LogLevel      string `env:"LOG_LEVEL" default:"info"`
	LogFormat     string `env:"LOG_FORMAT" default:"text"`

	RateLimit float64 `env:"SANDBOX_RATE_LIMIT" default:"10"` // requests per second per client IP
	RateBurst int     `env:"SANDBOX_RATE_BURST" default:"20"`

	TokenTTL   time.Duration `env:"SANDBOX_TOKEN_TTL" default:"15m"`
	RefreshTTL time.Duration `env:"SANDBOX_REFRESH_TTL" default:"720h"` // 30 days
	OTPTTL     time.Duration `env:"SANDBOX_OTP_TTL" default:"5m"`
}

func LoadSandbox() (*SandboxConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg SandboxConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("SANDBOX_JWT_SECRET must be at least 16 characters")
	}
	if cfg.TokenTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.OTPTTL <= 0 {
		return nil, errors.New("SANDBOX_TOKEN_TTL, SANDBOX_REFRESH_TTL and SANDBOX_OTP_TTL must be positive")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst < 1 {
		return nil, errors.New("SANDBOX_RATE_LIMIT must be positive and SANDBOX_RATE_BURST at least 1")
	}

	return &cfg, nil
}

func (c *SandboxConfig) IsProduction() bool {
	return c.AppEnv == "production"
}
