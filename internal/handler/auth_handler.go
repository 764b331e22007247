package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teamrhythm/setlist/internal/model"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"

	minPasswordLength = 8
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleSpotifyCallback(ctx context.Context, code string) (*model.Session, error)
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はローカル認証とSpotify OAuth認証のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer *Renderer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, renderer *Renderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		config:   config,
	}
}

// loginPage はログインフォームのテンプレートデータ。
type loginPage struct {
	basePage
	Username     string
	ErrorMessage string
}

// registerPage はアカウント登録フォームのテンプレートデータ。
type registerPage struct {
	basePage
	Username    string
	Email       string
	FieldErrors map[string]string
}

// LoginForm はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "login.html", loginPage{
		basePage: newBasePage(w, r, "ログイン"),
	})
}

// Login はローカル認証を処理する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if username == "" || password == "" {
		h.renderer.RenderStatus(w, http.StatusBadRequest, "login.html", loginPage{
			basePage:     newBasePage(w, r, "ログイン"),
			Username:     username,
			ErrorMessage: "ユーザー名とパスワードを入力してください。",
		})
		return
	}

	session, err := h.service.Authenticate(r.Context(), username, password)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			h.renderer.RenderStatus(w, http.StatusUnauthorized, "login.html", loginPage{
				basePage:     newBasePage(w, r, "ログイン"),
				Username:     username,
				ErrorMessage: appErr.Message,
			})
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

// RegisterForm はアカウント登録フォームを表示する。
// GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "register.html", registerPage{
		basePage: newBasePage(w, r, "アカウント登録"),
	})
}

// Register はローカルアカウントを登録する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	fieldErrors := validateRegistration(username, email, password)
	if len(fieldErrors) > 0 {
		h.renderer.RenderStatus(w, http.StatusBadRequest, "register.html", registerPage{
			basePage:    newBasePage(w, r, "アカウント登録"),
			Username:    username,
			Email:       email,
			FieldErrors: fieldErrors,
		})
		return
	}

	if _, err := h.service.Register(r.Context(), username, email, password); err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			field := "username"
			if appErr.Code == model.ErrCodeEmailTaken {
				field = "email"
			}
			h.renderer.RenderStatus(w, http.StatusConflict, "register.html", registerPage{
				basePage:    newBasePage(w, r, "アカウント登録"),
				Username:    username,
				Email:       email,
				FieldErrors: map[string]string{field: appErr.Message},
			})
			return
		}
		slog.Error("registration failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	SetFlash(w, FlashSuccess, "登録が完了しました。ログインしてください。")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// validateRegistration は登録フォームの入力を検証し、フィールドごとの
// エラーメッセージを返す。
func validateRegistration(username, email, password string) map[string]string {
	fieldErrors := make(map[string]string)
	if username == "" {
		fieldErrors["username"] = "ユーザー名を入力してください。"
	}
	if email == "" || !strings.Contains(email, "@") {
		fieldErrors["email"] = "有効なメールアドレスを入力してください。"
	}
	if len(password) < minPasswordLength {
		fieldErrors["password"] = "パスワードは8文字以上で入力してください。"
	}
	return fieldErrors
}

// SpotifyLogin はSpotify OAuthフローを開始する。
// GET /auth/spotify/login
func (h *AuthHandler) SpotifyLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// SpotifyCallback はOAuthコールバックを処理する。
// GET /auth/spotify/callback?code=xxx&state=yyy
func (h *AuthHandler) SpotifyCallback(w http.ResponseWriter, r *http.Request) {
	// ユーザーが認可を拒否した場合はerrorパラメータが付く
	if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
		SetFlash(w, FlashError, "Spotifyログインがキャンセルされました。")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	session, err := h.service.HandleSpotifyCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		SetFlash(w, FlashError, "Spotifyログインに失敗しました。もう一度お試しください。")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

// Logout はセッションを破棄する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
