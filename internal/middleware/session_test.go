package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teamrhythm/setlist/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// mockIdentityResolver はセッションが指すユーザーを解決するモック。
// 無指定の場合は有効なユーザーとして解決する。
type mockIdentityResolver struct {
	resolveSessionUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockIdentityResolver) ResolveSessionUser(ctx context.Context, userID string) (*model.User, error) {
	if m.resolveSessionUserFn != nil {
		return m.resolveSessionUserFn(ctx, userID)
	}
	return &model.User{ID: userID, Enabled: true}, nil
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUserID(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{
					ID:        "valid-session-id",
					UserID:    "user-123",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	mw := NewSessionMiddleware(repo, &mockIdentityResolver{})

	var capturedUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

// 未認証リクエストはログインページへリダイレクトされる
func assertRedirectsToLogin(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestSessionMiddleware_NoSessionCookie_RedirectsToLogin(t *testing.T) {
	repo := &mockSessionRepository{}
	mw := NewSessionMiddleware(repo, &mockIdentityResolver{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertRedirectsToLogin(t, w)
}

func TestSessionMiddleware_EmptySessionCookie_RedirectsToLogin(t *testing.T) {
	repo := &mockSessionRepository{}
	mw := NewSessionMiddleware(repo, &mockIdentityResolver{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: ""})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertRedirectsToLogin(t, w)
}

func TestSessionMiddleware_ExpiredSession_RedirectsToLogin(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			// セッションが見つからない（期限切れでnilを返すリポジトリの動作をシミュレート）
			return nil, nil
		},
	}
	mw := NewSessionMiddleware(repo, &mockIdentityResolver{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertRedirectsToLogin(t, w)
}

func TestSessionMiddleware_RepositoryError_RedirectsToLogin(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, context.DeadlineExceeded
		},
	}
	mw := NewSessionMiddleware(repo, &mockIdentityResolver{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "some-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertRedirectsToLogin(t, w)
}

// 有効なセッションでも無効化済みユーザーはログインページへ戻される
func TestSessionMiddleware_DisabledUser_RedirectsToLogin(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				UserID:    "user-disabled",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}
	resolver := &mockIdentityResolver{
		resolveSessionUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{ID: userID, Enabled: false}, nil
		},
	}
	mw := NewSessionMiddleware(repo, resolver)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "still-alive-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertRedirectsToLogin(t, w)
}

// セッションが指すユーザーが存在しない場合はログインページへ戻される
func TestSessionMiddleware_UserGone_RedirectsToLogin(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				UserID:    "user-deleted",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}
	resolver := &mockIdentityResolver{
		resolveSessionUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, nil
		},
	}
	mw := NewSessionMiddleware(repo, resolver)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "orphan-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertRedirectsToLogin(t, w)
}

// 解決にはセッションに記録されたユーザーIDが渡される
func TestSessionMiddleware_PassesSessionUserIDToResolver(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				UserID:    "user-789",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	var resolvedID string
	resolver := &mockIdentityResolver{
		resolveSessionUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			resolvedID = userID
			return &model.User{ID: userID, Enabled: true}, nil
		},
	}
	mw := NewSessionMiddleware(repo, resolver)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "some-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if resolvedID != "user-789" {
		t.Errorf("resolved userID = %q, want %q", resolvedID, "user-789")
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	ctx := context.Background()
	_, err := UserIDFromContext(ctx)
	if err == nil {
		t.Error("expected error for missing user ID in context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := context.WithValue(context.Background(), userIDContextKey, "user-456")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}
