package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/teamrhythm/setlist/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	getLoginURLFn           func(state string) string
	handleSpotifyCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	registerFn              func(ctx context.Context, username, email, password string) (*model.User, error)
	authenticateFn          func(ctx context.Context, username, password string) (*model.Session, error)
	logoutFn                func(ctx context.Context, sessionID string) error
	getCurrentUserFn        func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (m *mockAuthService) HandleSpotifyCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleSpotifyCallbackFn != nil {
		return m.handleSpotifyCallbackFn(ctx, code)
	}
	return &model.Session{ID: "session-1", UserID: "user-1"}, nil
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, email, password)
	}
	return &model.User{ID: "user-1", Username: username, Email: email}, nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, username, password string) (*model.Session, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return &model.Session{ID: "session-1", UserID: "user-1"}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return &model.User{ID: "user-1"}, nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

// newTestRenderer はテスト用のRendererを生成する。
func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return renderer
}

func newTestAuthHandler(t *testing.T, service *mockAuthService) *AuthHandler {
	t.Helper()
	return NewAuthHandler(service, newTestRenderer(t), AuthHandlerConfig{
		SessionMaxAge: 86400,
	})
}

// findCookie はレスポンスから指定した名前のCookieを探す。
func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// postForm はフォームPOSTリクエストを生成する。
func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// --- テスト ---

func TestAuthHandler_LoginForm(t *testing.T) {
	h := newTestAuthHandler(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	h.LoginForm(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "ログイン") {
		t.Error("ログインフォームが描画されていない")
	}
	if !strings.Contains(w.Body.String(), "/auth/spotify/login") {
		t.Error("Spotifyログインへの導線がない")
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	service := &mockAuthService{
		authenticateFn: func(ctx context.Context, username, password string) (*model.Session, error) {
			if username != "alice" || password != "password123" {
				t.Errorf("Authenticate(%q, %q) 想定外の引数", username, password)
			}
			return &model.Session{ID: "session-abc", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	h := newTestAuthHandler(t, service)

	w := httptest.NewRecorder()
	h.Login(w, postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"password123"},
	}))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/wishlist" {
		t.Errorf("Location = %q, want %q", location, "/wishlist")
	}

	cookie := findCookie(t, w, "session_id")
	if cookie == nil {
		t.Fatal("セッションCookieが設定されていない")
	}
	if cookie.Value != "session-abc" {
		t.Errorf("session cookie = %q, want %q", cookie.Value, "session-abc")
	}
	if !cookie.HttpOnly {
		t.Error("セッションCookieはHttpOnlyであるべき")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		authenticateFn: func(ctx context.Context, username, password string) (*model.Session, error) {
			return nil, model.NewInvalidLoginError()
		},
	}
	h := newTestAuthHandler(t, service)

	w := httptest.NewRecorder()
	h.Login(w, postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	// 入力したユーザー名は保持して再描画する
	if !strings.Contains(w.Body.String(), "alice") {
		t.Error("入力したユーザー名がフォームに保持されていない")
	}
}

func TestAuthHandler_Login_EmptyFields(t *testing.T) {
	authenticateCalled := false
	service := &mockAuthService{
		authenticateFn: func(ctx context.Context, username, password string) (*model.Session, error) {
			authenticateCalled = true
			return nil, nil
		},
	}
	h := newTestAuthHandler(t, service)

	w := httptest.NewRecorder()
	h.Login(w, postForm("/login", url.Values{"username": {"alice"}}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if authenticateCalled {
		t.Error("入力不備でもAuthenticateが呼ばれた")
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username, Email: email}, nil
		},
	}
	h := newTestAuthHandler(t, service)

	w := httptest.NewRecorder()
	h.Register(w, postForm("/register", url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"password": {"password123"},
	}))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/login" {
		t.Errorf("Location = %q, want %q", location, "/login")
	}
	if cookie := findCookie(t, w, "flash"); cookie == nil {
		t.Error("成功フラッシュメッセージが設定されていない")
	}
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{
			name:   "ユーザー名なし",
			values: url.Values{"email": {"a@example.com"}, "password": {"password123"}},
		},
		{
			name:   "メールアドレス不正",
			values: url.Values{"username": {"alice"}, "email": {"not-an-email"}, "password": {"password123"}},
		},
		{
			name:   "パスワードが短い",
			values: url.Values{"username": {"alice"}, "email": {"a@example.com"}, "password": {"short"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registerCalled := false
			service := &mockAuthService{
				registerFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
					registerCalled = true
					return nil, nil
				},
			}
			h := newTestAuthHandler(t, service)

			w := httptest.NewRecorder()
			h.Register(w, postForm("/register", tt.values))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if registerCalled {
				t.Error("検証エラーでもRegisterが呼ばれた")
			}
		})
	}
}

func TestAuthHandler_Register_UsernameTaken(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewUsernameTakenError(username)
		},
	}
	h := newTestAuthHandler(t, service)

	w := httptest.NewRecorder()
	h.Register(w, postForm("/register", url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"password": {"password123"},
	}))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestAuthHandler_SpotifyLogin(t *testing.T) {
	var capturedState string
	service := &mockAuthService{
		getLoginURLFn: func(state string) string {
			capturedState = state
			return "https://accounts.spotify.com/authorize?state=" + state
		},
	}
	h := newTestAuthHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/auth/spotify/login", nil)
	w := httptest.NewRecorder()
	h.SpotifyLogin(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if capturedState == "" {
		t.Fatal("stateが生成されていない")
	}

	// stateはCookieとリダイレクトURLの両方に含まれる
	cookie := findCookie(t, w, "oauth_state")
	if cookie == nil {
		t.Fatal("stateのCookieが設定されていない")
	}
	if cookie.Value != capturedState {
		t.Errorf("state cookie = %q, want %q", cookie.Value, capturedState)
	}
	if !strings.Contains(w.Header().Get("Location"), capturedState) {
		t.Error("リダイレクトURLにstateが含まれていない")
	}
}

func TestAuthHandler_SpotifyCallback_Success(t *testing.T) {
	service := &mockAuthService{
		handleSpotifyCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			return &model.Session{ID: "session-xyz", UserID: "user-1"}, nil
		},
	}
	h := newTestAuthHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/auth/spotify/callback?code=auth-code&state=state-123", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-123"})
	w := httptest.NewRecorder()
	h.SpotifyCallback(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/wishlist" {
		t.Errorf("Location = %q, want %q", location, "/wishlist")
	}

	cookie := findCookie(t, w, "session_id")
	if cookie == nil || cookie.Value != "session-xyz" {
		t.Error("セッションCookieが設定されていない")
	}
}

func TestAuthHandler_SpotifyCallback_StateMismatch(t *testing.T) {
	callbackCalled := false
	service := &mockAuthService{
		handleSpotifyCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			callbackCalled = true
			return nil, nil
		},
	}
	h := newTestAuthHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/auth/spotify/callback?code=auth-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-123"})
	w := httptest.NewRecorder()
	h.SpotifyCallback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if callbackCalled {
		t.Error("state不一致でもコールバック処理が実行された")
	}
}

func TestAuthHandler_SpotifyCallback_UserDenied(t *testing.T) {
	h := newTestAuthHandler(t, &mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/spotify/callback?error=access_denied", nil)
	w := httptest.NewRecorder()
	h.SpotifyCallback(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/login" {
		t.Errorf("Location = %q, want %q", location, "/login")
	}
	if cookie := findCookie(t, w, "flash"); cookie == nil {
		t.Error("エラーフラッシュメッセージが設定されていない")
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var deletedSessionID string
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deletedSessionID = sessionID
			return nil
		},
	}
	h := newTestAuthHandler(t, service)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if deletedSessionID != "session-abc" {
		t.Errorf("deleted session = %q, want %q", deletedSessionID, "session-abc")
	}

	cookie := findCookie(t, w, "session_id")
	if cookie == nil {
		t.Fatal("セッションCookieがクリアされていない")
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, Cookieを失効させるべき", cookie.MaxAge)
	}
}
