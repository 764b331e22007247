package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teamrhythm/setlist/internal/middleware"
)

// HealthPinger はヘルスチェックで使うデータベース接続の最小インターフェース。
type HealthPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder    middleware.SessionFinder
	IdentityResolver middleware.IdentityResolver
	RateLimiter      *middleware.RateLimiter
	CSRFConfig       middleware.CSRFConfig

	// ハンドラー依存
	Renderer        *Renderer
	AuthService     AuthServiceInterface
	AuthConfig      AuthHandlerConfig
	ArtistSearcher  ArtistSearcher
	WishlistService WishlistServiceInterface
	AttendedService AttendedServiceInterface

	// 運用エンドポイント
	HealthPinger   HealthPinger
	MetricsHandler http.Handler
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders →
//	  公開ページ: CSRF
//	  認証ページ: Session → CSRF → RateLimit(General)
//
// 検索エンドポイントにはIP単位の検索専用レート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Renderer, deps.AuthConfig)
	artistHandler := NewArtistHandler(deps.ArtistSearcher, deps.Renderer)
	wishlistHandler := NewWishlistHandler(deps.WishlistService, deps.Renderer)
	attendedHandler := NewAttendedHandler(deps.AttendedService, deps.WishlistService, deps.Renderer)

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 運用エンドポイント（ミドルウェアチェーン外） ---

	r.Get("/health", newHealthHandler(deps.HealthPinger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- ログイン不要のページ ---

	r.Group(func(r chi.Router) {
		r.Use(csrf)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/artists", http.StatusFound)
		})

		// ローカル認証
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/register", authHandler.RegisterForm)
		r.Post("/register", authHandler.Register)

		// Spotify OAuthフロー
		r.Get("/auth/spotify/login", authHandler.SpotifyLogin)
		r.Get("/auth/spotify/callback", authHandler.SpotifyCallback)

		// アーティスト検索（検索専用レート制限をIP単位で適用）
		r.Get("/artists", artistHandler.SearchPage)
		r.With(deps.RateLimiter.SearchMiddleware()).Get("/artists/search", artistHandler.Search)
	})

	// --- ログインが必要なページ ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.IdentityResolver))
		r.Use(csrf)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.List)
			r.Get("/add", wishlistHandler.AddForm)
			r.Post("/add", wishlistHandler.Add)
			r.Get("/edit/{id}", wishlistHandler.EditForm)
			r.Post("/edit/{id}", wishlistHandler.Edit)
			r.Post("/delete/{id}", wishlistHandler.Delete)
		})

		r.Route("/attended", func(r chi.Router) {
			r.Get("/", attendedHandler.List)
			r.Get("/add", attendedHandler.AddForm)
			r.Post("/add", attendedHandler.Add)
		})

		r.Post("/logout", authHandler.Logout)
	})

	return r
}

// newHealthHandler はデータベース疎通を確認するヘルスチェックハンドラーを
// 返す。
func newHealthHandler(pinger HealthPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if pinger != nil {
			if err := pinger.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
