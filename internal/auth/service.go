// Package auth はローカル認証、Spotify OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamrhythm/setlist/internal/model"
	"github.com/teamrhythm/setlist/internal/repository"
)

// SpotifyUserInfo はSpotifyから取得したプロフィール情報を表す。
type SpotifyUserInfo struct {
	SpotifyUserID string
	Email         string
	DisplayName   string
}

// SpotifyAuthProvider はSpotify OAuth認証のインターフェース。
type SpotifyAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*SpotifyUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       SpotifyAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth SpotifyAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL はSpotify OAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// maxUsernameLength は自動生成ユーザー名の最大長。
const maxUsernameLength = 20

// HandleSpotifyCallback はOAuthコールバックを処理し、セッションを発行する。
// SpotifyユーザーIDで既存ユーザーを検索し、見つからなければメールアドレスで
// 照合して既存アカウントに紐付ける（同一ユーザーの二重作成を防ぐ）。
// どちらにも該当しない場合のみ新規ユーザーを作成する。
func (s *Service) HandleSpotifyCallback(ctx context.Context, code string) (*model.Session, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	if info.SpotifyUserID == "" {
		return nil, fmt.Errorf("spotify profile has no user ID")
	}

	user, err := s.findOrCreateSpotifyUser(ctx, info)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// findOrCreateSpotifyUser はSpotifyプロフィールに対応するユーザーを返す。
// 紐付け済み → そのユーザー。メール一致 → 既存ユーザーに紐付け。いなければ新規作成。
func (s *Service) findOrCreateSpotifyUser(ctx context.Context, info *SpotifyUserInfo) (*model.User, error) {
	// 1. SpotifyユーザーIDで検索
	user, err := s.userRepo.FindBySpotifyUserID(ctx, info.SpotifyUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by spotify ID: %w", err)
	}
	if user != nil {
		if !user.Enabled {
			return nil, model.NewAccountDisabledError()
		}
		slog.Info("spotifyユーザーがログインしました",
			slog.String("user_id", user.ID),
		)
		return user, nil
	}

	// 2. メールアドレスの申告があれば既存アカウントを検索し、見つかれば紐付ける
	if info.Email != "" {
		user, err = s.userRepo.FindByEmail(ctx, info.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if user != nil {
			if !user.Enabled {
				return nil, model.NewAccountDisabledError()
			}
			if user.SpotifyUserID == "" {
				if err := s.userRepo.LinkSpotifyID(ctx, user.ID, info.SpotifyUserID); err != nil {
					return nil, fmt.Errorf("failed to link spotify ID: %w", err)
				}
				user.SpotifyUserID = info.SpotifyUserID
				slog.Info("既存アカウントにSpotifyを紐付けました",
					slog.String("user_id", user.ID),
				)
			}
			return user, nil
		}
	}

	// メール未公開のプロフィールにはデフォルトのアドレスを割り当てる
	email := info.Email
	if email == "" {
		email = info.SpotifyUserID + "@spotify.user"
	}

	// 3. 新規ユーザーを作成
	username, err := s.uniqueUsername(ctx, deriveUsername(info.DisplayName, email, info.SpotifyUserID))
	if err != nil {
		return nil, err
	}

	// ローカルログインには使われないランダムパスワードを設定する
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	newUser := &model.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		PasswordHash:  string(hash),
		SpotifyUserID: info.SpotifyUserID,
		Role:          model.RoleUser,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create spotify user: %w", err)
	}

	slog.Info("spotifyユーザーを新規作成しました",
		slog.String("user_id", newUser.ID),
		slog.String("username", newUser.Username),
	)
	return newUser, nil
}

// deriveUsername はプロフィールからユーザー名の候補を導出する。
// 優先順: 表示名 → メールのローカル部 → "spotify_" + IDの先頭10文字。
// 表示名・メールは小文字化して英数字以外を除去し、表示名は20文字に切り詰める。
func deriveUsername(displayName, email, spotifyUserID string) string {
	if candidate := sanitizeUsername(displayName); candidate != "" {
		if len(candidate) > maxUsernameLength {
			candidate = candidate[:maxUsernameLength]
		}
		return candidate
	}

	local, _, _ := strings.Cut(email, "@")
	if candidate := sanitizeUsername(local); candidate != "" {
		return candidate
	}

	prefix := spotifyUserID
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return "spotify_" + prefix
}

// sanitizeUsername は小文字化して英数字以外の文字を除去する。
func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// uniqueUsername は衝突しないユーザー名を返す。
// 既存と衝突する場合は数値サフィックスを付与する（alex → alex1 → alex2）。
func (s *Service) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 0; ; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		exists, err := s.userRepo.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// Register は新規ローカルユーザーを登録する。
// ユーザー名・メールアドレスの重複はAppErrorとして返す。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.NewUsernameTakenError(username)
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// ExistsByUsernameの確認後に同名ユーザーが作成されるレースの備え
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("ユーザーを登録しました",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate はユーザー名とパスワードを検証し、セッションを発行する。
// ユーザー不在・パスワード不一致・無効化済みはいずれも同一のエラーを返す
// （存在の有無を漏らさない）。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.Enabled {
		return nil, model.NewInvalidLoginError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidLoginError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("ユーザーがログインしました", slog.String("user_id", user.ID))
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("ユーザーがログアウトしました", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}
