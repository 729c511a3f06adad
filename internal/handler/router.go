package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dealman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// アラート
	AlertService  AlertServiceInterface
	TokenVerifier TokenVerifier

	// カタログ
	CatalogLoader CatalogLoader

	// メトリクス
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → RateLimit(General)
//
// /healthz と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	alertHandler := NewAlertHandler(deps.AlertService, deps.TokenVerifier)
	dealHandler := NewDealHandler(deps.CatalogLoader)

	// --- 運用エンドポイント（レート制限の外） ---

	r.Get("/healthz", Healthz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 公開APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アラート管理
		r.Route("/api/alerts", func(r chi.Router) {
			// POST /api/alerts - アラート登録（登録専用レート制限を追加）
			r.With(deps.RateLimiter.AlertRegistrationMiddleware()).Post("/", alertHandler.CreateAlert)

			r.Put("/{id}", alertHandler.UpdateAlert)
		})

		// 署名付きリンク経由のキャンセル（メール内リンクから直接開かれる）
		r.Get("/alerts/cancel", alertHandler.CancelAlerts)

		// セールカタログ
		r.Get("/api/deals", dealHandler.ListDeals)
	})

	return r
}

// Healthz はヘルスチェックエンドポイント。
// GET /healthz
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
