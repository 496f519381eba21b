package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/rateman/internal/metrics"
	"github.com/hitoshi/rateman/internal/middleware"
)

// HealthChecker はヘルスチェックのための最小インターフェース。
// *sql.DBがこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 観測
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer
	HealthChecker   HealthChecker

	// ドメインサービス
	AuthService    AuthServiceInterface
	UserService    UserServiceInterface
	CatalogService CatalogServiceInterface
	ReviewService  ReviewServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Metrics → Recovery
//
// サインアップとトークン発行は認証不要で、送信元IP単位のレート制限を適用する。
// カタログ・レビューの読み取りは認証不要。書き込みと/api/users配下は
// Auth → RateLimit(General) のチェーンを通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	reviewHandler := NewReviewHandler(deps.ReviewService, deps.Metrics)

	// --- 運用エンドポイント ---

	if deps.HealthChecker != nil {
		r.Get("/health", newHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---

	// サインアップ・トークン発行（送信元IP単位のレート制限）
	signupLimit := deps.RateLimiter.SignupMiddleware()
	r.With(signupLimit).Post("/auth/signup", authHandler.Signup)
	r.With(signupLimit).Post("/auth/token", authHandler.IssueToken)

	// カタログ・レビューの読み取り
	r.Get("/api/categories", catalogHandler.ListCategories)
	r.Get("/api/genres", catalogHandler.ListGenres)
	r.Get("/api/titles", catalogHandler.ListTitles)
	r.Get("/api/titles/{titleID}", catalogHandler.GetTitle)
	r.Get("/api/titles/{titleID}/reviews", reviewHandler.ListReviews)
	r.Get("/api/titles/{titleID}/reviews/{reviewID}", reviewHandler.GetReview)
	r.Get("/api/titles/{titleID}/reviews/{reviewID}/comments", reviewHandler.ListComments)
	r.Get("/api/titles/{titleID}/reviews/{reviewID}/comments/{commentID}", reviewHandler.GetComment)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 自身のプロフィール
		r.Get("/api/users/me", userHandler.Me)
		r.Patch("/api/users/me", userHandler.UpdateMe)

		// ユーザー管理（管理者専用）
		r.Get("/api/users", userHandler.ListUsers)
		r.Post("/api/users", userHandler.CreateUser)
		r.Get("/api/users/{username}", userHandler.GetUser)
		r.Patch("/api/users/{username}", userHandler.UpdateUser)
		r.Delete("/api/users/{username}", userHandler.DeleteUser)

		// カタログ管理（管理者専用）
		r.Post("/api/categories", catalogHandler.CreateCategory)
		r.Delete("/api/categories/{slug}", catalogHandler.DeleteCategory)
		r.Post("/api/genres", catalogHandler.CreateGenre)
		r.Delete("/api/genres/{slug}", catalogHandler.DeleteGenre)
		r.Post("/api/titles", catalogHandler.CreateTitle)
		r.Patch("/api/titles/{titleID}", catalogHandler.UpdateTitle)
		r.Delete("/api/titles/{titleID}", catalogHandler.DeleteTitle)

		// レビュー・コメントの書き込み
		r.Post("/api/titles/{titleID}/reviews", reviewHandler.CreateReview)
		r.Patch("/api/titles/{titleID}/reviews/{reviewID}", reviewHandler.UpdateReview)
		r.Delete("/api/titles/{titleID}/reviews/{reviewID}", reviewHandler.DeleteReview)
		r.Post("/api/titles/{titleID}/reviews/{reviewID}/comments", reviewHandler.CreateComment)
		r.Patch("/api/titles/{titleID}/reviews/{reviewID}/comments/{commentID}", reviewHandler.UpdateComment)
		r.Delete("/api/titles/{titleID}/reviews/{reviewID}/comments/{commentID}", reviewHandler.DeleteComment)
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
