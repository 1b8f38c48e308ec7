package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/questlog/internal/assistant"
	"github.com/hitoshi/questlog/internal/auth"
	"github.com/hitoshi/questlog/internal/config"
	"github.com/hitoshi/questlog/internal/database"
	"github.com/hitoshi/questlog/internal/handler"
	"github.com/hitoshi/questlog/internal/hub"
	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/metrics"
	"github.com/hitoshi/questlog/internal/middleware"
	"github.com/hitoshi/questlog/internal/repository"
	"github.com/hitoshi/questlog/internal/security"
)

const (
	storagePingTimeout  = 5 * time.Second
	reachabilityTimeout = 5 * time.Second
	hostedTokenCacheTTL = time.Minute
)

// storage は選択されたバックエンドのリポジトリ群と疎通確認、終了処理をまとめる。
type storage struct {
	repos  *repository.Set
	health handler.HealthChecker
	close  func() error
}

// openStorage はSTORAGE_BACKENDに応じてストレージを開き、疎通を確認する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	ctx, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()

	switch cfg.StorageBackend {
	case config.StorageRedis:
		kv, err := kvstore.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := kv.PingContext(ctx); err != nil {
			kv.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return &storage{repos: repository.NewKVSet(kv), health: kv, close: kv.Close}, nil

	case config.StoragePostgres:
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &storage{repos: repository.NewPostgresSet(db), health: db, close: db.Close}, nil

	default:
		kv := kvstore.NewMemoryStore()
		slog.Warn("using in-process storage; data is lost on restart")
		return &storage{repos: repository.NewKVSet(kv), health: kv, close: func() error { return nil }}, nil
	}
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// newCredentialStore はAUTH_MODEに応じたCredentialStoreを生成する。
func newCredentialStore(cfg *config.Config, repos *repository.Set) auth.CredentialStore {
	if cfg.AuthMode == config.AuthModeHosted {
		provider := auth.NewGoTrueProvider(auth.GoTrueConfig{
			BaseURL: cfg.IdentityURL,
			APIKey:  cfg.IdentityAPIKey,
			Timeout: 10 * time.Second,
		})
		return auth.NewHostedStore(provider, auth.HostedConfig{
			EmailDomain: cfg.IdentityEmailDomain,
			CacheTTL:    hostedTokenCacheTTL,
		})
	}
	return auth.NewLocalStore(repos.Users, repos.Sessions, auth.LocalConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})
}

// newAssistant はアシスタントクライアントを生成する。
// APIキーが未設定の場合は未設定の文言を返すクライアントになる。
func newAssistant(cfg *config.Config, collector metrics.MetricsCollector) *assistant.Client {
	var provider assistant.Provider
	if cfg.AssistantEnabled() {
		provider = assistant.NewGeminiProvider(assistant.GeminiConfig{
			APIKey:   cfg.AssistantAPIKey,
			Endpoint: cfg.AssistantEndpoint,
			Timeout:  cfg.AssistantTimeout,
		})
	} else {
		slog.Warn("ASSISTANT_API_KEY is not set; assistant features are disabled")
	}
	return assistant.NewClient(provider, assistant.Config{
		Model:   cfg.AssistantModel,
		Timeout: cfg.AssistantTimeout,
	}, collector)
}

// newRegistry はGo・プロセスのメトリクスを登録済みのレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// buildHandler は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// 戻り値の関数はバックグラウンド処理を停止する。
func buildHandler(cfg *config.Config, store *storage, reg *prometheus.Registry, logger *slog.Logger) (http.Handler, func()) {
	collector := metrics.NewCollector(reg)

	credentials := newCredentialStore(cfg, store.repos)
	hubService := hub.NewService(
		store.repos,
		security.NewTextSanitizer(),
		security.NewSSRFGuard(reachabilityTimeout),
		collector,
		logger,
	)
	hubService.SetWorkspaceTTL(time.Duration(cfg.SessionMaxAge) * time.Second)
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAssistant),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Credentials: credentials,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
		Hub:               hubService,
		Assistant:         newAssistant(cfg, collector),
		HealthChecker:     store.health,
		MetricsGatherer:   reg,
		MetricsCollector:  collector,
		Logger:            logger,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})
	return router, rateLimiter.Stop
}
