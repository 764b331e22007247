// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限種別を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "USER"
	// RoleAdmin は管理者ユーザー。
	RoleAdmin Role = "ADMIN"
)

// User はサービス利用ユーザーを表す。
// ローカル認証（username + password）とSpotify OAuth2ログインの両方に対応する。
// SpotifyUserIDが設定されている場合はSpotifyアカウントと紐付いている。
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	SpotifyUserID string // 未リンクの場合は空文字列
	Role          Role
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
