package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSigningKeyBytes is the shortest accepted HMAC signing key.
const MinSigningKeyBytes = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Token    TokenConfig
	Cache    CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	PublicBaseURL         string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// TokenConfig holds the QR token protocol parameters.
type TokenConfig struct {
	IssuerTag        string
	MaxAgeSeconds    int
	ClockSkewSeconds int
	KeyPath          string
	SigningKey       []byte
	AuthorizedOrigin string
}

// CacheConfig controls the profile lookup cache.
type CacheConfig struct {
	ProfileTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	signingKey, err := ParseSigningKey(os.Getenv("TOKEN_SIGNING_KEY"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_SIGNING_KEY: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "profile-qr-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicBaseURL:         strings.TrimRight(getEnv("APP_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Token: TokenConfig{
			IssuerTag:        getEnv("TOKEN_ISSUER_TAG", "HOYN_QR_V1"),
			MaxAgeSeconds:    getEnvAsInt("TOKEN_MAX_AGE_SECONDS", 300),
			ClockSkewSeconds: getEnvAsInt("TOKEN_CLOCK_SKEW_SECONDS", 30),
			KeyPath:          getEnv("TOKEN_KEY_PATH", "data/qr_encryption.key"),
			SigningKey:       signingKey,
			AuthorizedOrigin: getEnv("TOKEN_AUTHORIZED_ORIGIN", "hoyn_scanner"),
		},
		Cache: CacheConfig{
			ProfileTTLSeconds: getEnvAsInt("CACHE_PROFILE_TTL_SECONDS", 60),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.Token.MaxAgeSeconds <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_MAX_AGE_SECONDS: %d", cfg.Token.MaxAgeSeconds)
	}

	return cfg, nil
}

// ParseSigningKey decodes a hex signing key and enforces the minimum length.
func ParseSigningKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("signing key is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("signing key must be hex: %w", err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSigningKeyBytes, len(key))
	}
	return key, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MaxAge returns the freshness window.
func (t TokenConfig) MaxAge() time.Duration {
	return time.Duration(t.MaxAgeSeconds) * time.Second
}

// ClockSkew returns how far in the future an issued_at may lie.
func (t TokenConfig) ClockSkew() time.Duration {
	if t.ClockSkewSeconds < 0 {
		return 0
	}
	return time.Duration(t.ClockSkewSeconds) * time.Second
}

// ProfileTTL returns the cache TTL; zero disables caching.
func (c CacheConfig) ProfileTTL() time.Duration {
	if c.ProfileTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ProfileTTLSeconds) * time.Second
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

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
