// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/teamrhythm/setlist/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// 比較は大文字小文字を区別しない。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindBySpotifyUserID はSpotifyユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
	FindBySpotifyUserID(ctx context.Context, spotifyUserID string) (*model.User, error)

	// ExistsByUsername は指定ユーザー名が既に使用されているかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// LinkSpotifyID は既存ユーザーにSpotifyユーザーIDを紐付ける。
	LinkSpotifyID(ctx context.Context, userID, spotifyUserID string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ArtistRepository はアーティストデータの永続化インターフェース。
type ArtistRepository interface {
	// FindByID は指定IDのアーティストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Artist, error)

	// FindBySpotifyArtistID はSpotifyアーティストIDで検索する。見つからない場合はnilを返す。
	FindBySpotifyArtistID(ctx context.Context, spotifyArtistID string) (*model.Artist, error)

	// Create はアーティストを作成する。
	// spotify_artist_idの一意制約違反はErrDuplicateとして返す（同時作成レースの検出用）。
	Create(ctx context.Context, artist *model.Artist) error
}

// WishlistRepository はウィッシュリストデータの永続化インターフェース。
type WishlistRepository interface {
	// FindByID は指定IDの項目を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.WishlistEntry, error)

	// FindByUserArtistCity は (user, artist, city) で項目を検索する。見つからない場合はnilを返す。
	FindByUserArtistCity(ctx context.Context, userID, artistID, city string) (*model.WishlistEntry, error)

	// Create は項目を作成する。(user, artist, city) の一意制約違反はErrDuplicateとして返す。
	Create(ctx context.Context, entry *model.WishlistEntry) error

	// Update は項目のcity, venue, priority, target_date, notesを上書きする。
	Update(ctx context.Context, entry *model.WishlistEntry) error

	// Delete は指定IDの項目を削除する。
	Delete(ctx context.Context, id string) error

	// ListPendingByUserID はPENDINGの項目をアーティスト情報付きで返す。
	// 並び順: 優先度降順（HIGH > MEDIUM > LOW）、同優先度内は作成日時降順。
	ListPendingByUserID(ctx context.Context, userID string) ([]model.WishlistEntryWithArtist, error)

	// ListByUserIDOrderByPriority は全項目を優先度降順で返す。
	ListByUserIDOrderByPriority(ctx context.Context, userID string) ([]model.WishlistEntryWithArtist, error)

	// ListByUserIDOrderByTargetDate は全項目を目標日昇順で返す。
	// 目標日がNULLの項目は末尾に置く（NULLS LAST）。
	ListByUserIDOrderByTargetDate(ctx context.Context, userID string) ([]model.WishlistEntryWithArtist, error)
}

// AttendedRepository は参加記録データの永続化インターフェース。
type AttendedRepository interface {
	// CreateAndMarkAttended は参加記録の作成と元ウィッシュリスト項目の
	// ステータス更新（→ ATTENDED）を同一トランザクションで実行する。
	// どちらか一方だけが永続化されることはない。
	CreateAndMarkAttended(ctx context.Context, rec *model.AttendedConcert) error

	// ListByUserID はユーザーの参加記録をアーティスト情報付きで
	// 公演日降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error)

	// CountByUserID はユーザーの参加記録数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
