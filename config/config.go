package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Privacy  PrivacyConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Requests per minute per caller; the deposit limit is tighter because
	// each request opens a payment intent at the gateway.
	RateLimitPerMin        int
	DepositRateLimitPerMin int
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// GatewayConfig holds the YunGou merchant credentials and endpoints.
// NotifyURL is where the gateway delivers payment callbacks.
type GatewayConfig struct {
	MchID     string
	Key       string
	BaseURL   string
	NotifyURL string
	Timeout   time.Duration
}

type PrivacyConfig struct {
	EncryptionKey string // 32 bytes for AES-256
}

type AuthConfig struct {
	BcryptCost int
}

func Load() *Config {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:                   getEnv("PORT", "3000"),
			Env:                    getEnv("APP_ENV", "development"),
			ReadTimeout:            10 * time.Second,
			WriteTimeout:           10 * time.Second,
			RateLimitPerMin:        getEnvInt("RATE_LIMIT_PER_MIN", 100),
			DepositRateLimitPerMin: getEnvInt("DEPOSIT_RATE_LIMIT_PER_MIN", 12),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "junyue:junyue@tcp(localhost:3306)/junyuespa?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "junyue",
		},
		Gateway: GatewayConfig{
			MchID:     getEnv("YUNGOU_MCH_ID", "test_mch_id"),
			Key:       getEnv("YUNGOU_KEY", "test_key"),
			BaseURL:   getEnv("YUNGOU_API_URL", "https://api.pay.yungouos.com"),
			NotifyURL: getEnv("YUNGOU_NOTIFY_URL", "http://localhost:3000/api/v1/payments/callback/yungou"),
			Timeout:   getEnvDuration("YUNGOU_TIMEOUT", 15*time.Second),
		},
		Privacy: PrivacyConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", "junyuespa-encryption-key-32-chars"),
		},
		Auth: AuthConfig{
			BcryptCost: getEnvInt("BCRYPT_COST", 10),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
