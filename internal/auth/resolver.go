package auth

import (
	"context"
	"fmt"

	"github.com/teamrhythm/setlist/internal/model"
	"github.com/teamrhythm/setlist/internal/repository"
)

// Principal は認証コンテキストの主体を表すタグ付きユニオン。
// 各バリアントは由来の異なる認証情報を保持し、Resolverが順に解決する。
type Principal interface {
	// PrincipalName はフォールバック解決に使う識別子を返す。
	PrincipalName() string
}

// SessionPrincipal はセッションストアから復元された主体。
type SessionPrincipal struct {
	UserID   string
	Username string
}

// PrincipalName はユーザー名を返す。
func (p SessionPrincipal) PrincipalName() string { return p.Username }

// LocalUserPrincipal はローカル認証で得たユーザーを運ぶ主体。
type LocalUserPrincipal struct {
	User *model.User
}

// PrincipalName はユーザー名を返す。
func (p LocalUserPrincipal) PrincipalName() string {
	if p.User == nil {
		return ""
	}
	return p.User.Username
}

// NamedPrincipal は識別子文字列のみを持つ主体。
type NamedPrincipal struct {
	Name string
}

// PrincipalName は識別子を返す。
func (p NamedPrincipal) PrincipalName() string { return p.Name }

// LinkedSpotifyPrincipal は紐付け済みユーザーを直接運ぶOAuth主体。
type LinkedSpotifyPrincipal struct {
	User *model.User
}

// PrincipalName はユーザー名を返す。
func (p LinkedSpotifyPrincipal) PrincipalName() string {
	if p.User == nil {
		return ""
	}
	return p.User.Username
}

// SpotifyPrincipal は未紐付けのOAuthプロフィールを運ぶ主体。
type SpotifyPrincipal struct {
	SpotifyUserID string
	Email         string
	DisplayName   string
}

// PrincipalName はSpotifyユーザーIDを返す。
func (p SpotifyPrincipal) PrincipalName() string { return p.SpotifyUserID }

// Resolver は主体からユーザーを解決する。
// 全てのバリアントで、対応するユーザーがいない場合は (nil, nil) を返す。
// エラーを返すのはリポジトリ障害のみ。
type Resolver struct {
	userRepo repository.UserRepository
}

// NewResolver はResolverを生成する。
func NewResolver(userRepo repository.UserRepository) *Resolver {
	return &Resolver{userRepo: userRepo}
}

// Resolve は主体の種別に応じた解決を行う。
// 判定順はバリアント定義の順に固定されている。
func (r *Resolver) Resolve(ctx context.Context, principal Principal) (*model.User, error) {
	if principal == nil {
		return nil, nil
	}

	switch p := principal.(type) {
	case SessionPrincipal:
		// IDで検索し、見つからなければユーザー名で再検索する
		if p.UserID != "" {
			user, err := r.userRepo.FindByID(ctx, p.UserID)
			if err != nil {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		}
		if p.Username == "" {
			return nil, nil
		}
		return r.userRepo.FindByUsername(ctx, p.Username)

	case LocalUserPrincipal:
		if p.User == nil {
			return nil, nil
		}
		if p.User.ID != "" {
			user, err := r.userRepo.FindByID(ctx, p.User.ID)
			if err != nil {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		}
		return r.resolveByIdentifier(ctx, p.User.Username)

	case NamedPrincipal:
		return r.resolveByIdentifier(ctx, p.Name)

	case LinkedSpotifyPrincipal:
		// 紐付け済みユーザーをそのまま返す
		return p.User, nil

	case SpotifyPrincipal:
		user, err := r.userRepo.FindBySpotifyUserID(ctx, p.SpotifyUserID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
		if p.Email != "" {
			user, err = r.userRepo.FindByEmail(ctx, p.Email)
			if err != nil {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		}
		return r.userRepo.FindByUsername(ctx, p.DisplayName)

	default:
		// 未知のバリアントは識別子のフォールバック解決
		return r.resolveByIdentifier(ctx, principal.PrincipalName())
	}
}

// RequireUserID は主体を解決してユーザーIDを返す。
// Resolveと異なり、ユーザーがいない場合は認証エラーを返す。
func (r *Resolver) RequireUserID(ctx context.Context, principal Principal) (string, error) {
	user, err := r.Resolve(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to resolve principal: %w", err)
	}
	if user == nil {
		return "", model.NewNotAuthenticatedError()
	}
	return user.ID, nil
}

// ResolveSessionUser はセッションに記録されたユーザーIDからユーザー行を解決する。
// セッションミドルウェアがリクエストごとに呼び出し、ユーザーの現在の状態
// （無効化の有無を含む）を取得するために使う。
func (r *Resolver) ResolveSessionUser(ctx context.Context, userID string) (*model.User, error) {
	return r.Resolve(ctx, SessionPrincipal{UserID: userID})
}

// resolveByIdentifier は識別子をユーザー名 → メールアドレス → SpotifyユーザーID
// の順に解決する。いずれにも一致しない場合は (nil, nil)。
func (r *Resolver) resolveByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	if identifier == "" {
		return nil, nil
	}

	user, err := r.userRepo.FindByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = r.userRepo.FindByEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	return r.userRepo.FindBySpotifyUserID(ctx, identifier)
}
