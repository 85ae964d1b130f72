package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kawase/torihiki/internal/middleware"
)

// HealthChecker はヘルスチェック時にデータベースへの疎通確認を行うインターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// メトリクス収集ミドルウェア（nilの場合は無効）
	MetricsMiddleware func(next http.Handler) http.Handler

	// ヘルスチェック
	HealthChecker HealthChecker

	// 呼び出し元ユーザーの解決
	Resolver CallerResolver

	// 各ドメインのサービス
	DealService      DealServiceInterface
	AnalyticsService AnalyticsServiceInterface
	UserService      UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//	→（認証グループ）Session → RateLimit(General) → CSRF
//
// /health と /api/csrf-token は認証グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsMiddleware != nil {
		r.Use(deps.MetricsMiddleware)
	}

	dealHandler := NewDealHandler(deps.DealService, deps.Resolver)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService, deps.Resolver)
	userHandler := NewUserHandler(deps.UserService)
	authHandler := NewAuthHandler(deps.Resolver)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 認証済みユーザー情報
		r.Get("/api/auth/user", authHandler.GetCurrentUser)

		// 案件管理
		r.Route("/api/deals", func(r chi.Router) {
			r.Get("/", dealHandler.ListDeals)

			// 状態変更には専用レート制限を追加
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/", dealHandler.CreateDeal)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", dealHandler.GetDeal)
				r.With(deps.RateLimiter.MutationMiddleware()).Put("/", dealHandler.UpdateDeal)
				r.With(deps.RateLimiter.MutationMiddleware()).Delete("/", dealHandler.DeleteDeal)
			})
		})

		// 分析
		r.Route("/api/analytics", func(r chi.Router) {
			r.Get("/stats", analyticsHandler.GetStats)
			r.Get("/stage-distribution/{type}", analyticsHandler.GetStageDistribution)
		})

		// ユーザー管理
		r.Get("/api/users", userHandler.ListUsers)
	})

	return r
}

// healthHandler はデータベース疎通を確認してサービスの状態を返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
