// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストレージバックエンド。
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// 認証モード。
const (
	AuthModeLocal  = "local"
	AuthModeHosted = "hosted"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	BaseURL    string
	LogLevel   string

	// Storage
	StorageBackend string
	DatabaseURL    string
	RedisURL       string

	// Auth
	AuthMode            string
	IdentityURL         string
	IdentityAPIKey      string
	IdentityEmailDomain string

	// Assistant
	AssistantAPIKey   string
	AssistantModel    string
	AssistantEndpoint string
	AssistantTimeout  time.Duration

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral   int
	RateLimitAssistant int

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// AssistantEnabled はアシスタントのAPIキーが設定されているかを返す。
func (c *Config) AssistantEnabled() bool {
	return c.AssistantAPIKey != ""
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envの値で上書きされない。
// 選択したバックエンドや認証モードに必要な環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.StorageBackend = strings.ToLower(getEnvString("STORAGE_BACKEND", StorageMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.AuthMode = strings.ToLower(getEnvString("AUTH_MODE", AuthModeLocal))
	cfg.IdentityURL = os.Getenv("IDENTITY_URL")
	cfg.IdentityAPIKey = os.Getenv("IDENTITY_API_KEY")
	cfg.IdentityEmailDomain = getEnvString("IDENTITY_EMAIL_DOMAIN", "questlog.local")

	cfg.AssistantAPIKey = os.Getenv("ASSISTANT_API_KEY")
	cfg.AssistantModel = getEnvString("ASSISTANT_MODEL", "gemini-2.5-flash")
	cfg.AssistantEndpoint = getEnvString("ASSISTANT_ENDPOINT", "https://generativelanguage.googleapis.com")
	cfg.AssistantTimeout = getEnvDuration("ASSISTANT_TIMEOUT", 30*time.Second)

	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAssistant = getEnvInt("RATE_LIMIT_ASSISTANT", 10)

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は選択値の妥当性と、選択に応じた必須項目を検証する。
func (c *Config) validate() error {
	var missing []string

	switch c.StorageBackend {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %q", c.StorageBackend)
	}

	switch c.AuthMode {
	case AuthModeLocal:
	case AuthModeHosted:
		if c.IdentityURL == "" {
			missing = append(missing, "IDENTITY_URL")
		}
		if c.IdentityAPIKey == "" {
			missing = append(missing, "IDENTITY_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE: %q", c.AuthMode)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
