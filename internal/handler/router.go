package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/questlog/internal/metrics"
	"github.com/hitoshi/questlog/internal/middleware"
)

// HubInterface はアプリケーション状態コントローラーに対してハンドラー群が必要とする操作。
// hub.Serviceが実装する。
type HubInterface interface {
	WorkspaceManager
	GameServiceInterface
	PortfolioServiceInterface
	StatsProvider
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証
	Credentials AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメイン
	Hub       HubInterface
	Assistant AssistantInterface

	// 運用
	HealthChecker    HealthChecker
	MetricsGatherer  prometheus.Gatherer
	MetricsCollector metrics.MetricsCollector
	Logger           *slog.Logger

	// ミドルウェア依存
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Logging → Metrics → CORS
//	認証が必要なルート: Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）、/health、/metricsはセッション検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.MetricsCollector
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}
	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.Credentials, deps.Hub, deps.AuthConfig)
	gameHandler := NewGameHandler(deps.Hub)
	assistantHandler := NewAssistantHandler(deps.Hub, deps.Assistant)
	portfolioHandler := NewPortfolioHandler(deps.Hub)

	// --- 認証不要のルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))
	r.Get("/health", HealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Credentials))
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(rateLimiter.GeneralMiddleware())

		r.Route("/api/games", func(r chi.Router) {
			r.Get("/", gameHandler.ListGames)
			r.Post("/", gameHandler.CreateGame)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", gameHandler.GetGame)
				r.Put("/", gameHandler.UpdateGame)
				r.Delete("/", gameHandler.DeleteGame)
				r.Put("/status", gameHandler.UpdateStatus)
				r.Put("/progress", gameHandler.UpdateProgress)
				r.Post("/sessions", gameHandler.AddSession)
				r.Delete("/sessions/{sessionID}", gameHandler.RemoveSession)

				// アシスタント呼び出しは専用のレート制限を追加
				r.Route("/assistant", func(r chi.Router) {
					r.Use(rateLimiter.AssistantMiddleware())
					r.Post("/resume", assistantHandler.Resume)
					r.Post("/plan", assistantHandler.Plan)
					r.Post("/stagnation", assistantHandler.Stagnation)
				})
			})
		})

		r.Route("/api/ideas", portfolioHandler.MountIdeas)
		r.Route("/api/apps", portfolioHandler.MountApps)
		r.Route("/api/learning", portfolioHandler.MountLearning)

		r.Get("/api/stats", StatsHandler(deps.Hub))
	})

	return r
}
