// Package model はドメインモデルを定義する。
package model

import "time"

// Priority はウィッシュリスト項目の優先度を表す。
// 並び順の決定にのみ使用され、スケジューリングには関与しない。
type Priority string

const (
	// PriorityHigh は最優先で行きたい公演。
	PriorityHigh Priority = "HIGH"
	// PriorityMedium は中程度の優先度。
	PriorityMedium Priority = "MEDIUM"
	// PriorityLow は低い優先度。
	PriorityLow Priority = "LOW"
)

// SortWeight は優先度の並べ替え重みを返す（HIGH > MEDIUM > LOW）。
// 文字列の辞書順では正しく並ばないため、リポジトリのORDER BY式と
// 同じ重み付けをドメイン側でも提供する。
func (p Priority) SortWeight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// WishlistStatus はウィッシュリスト項目の状態を表す。
type WishlistStatus string

const (
	// StatusPending は未訪問の状態。一覧のデフォルト表示対象。
	StatusPending WishlistStatus = "PENDING"
	// StatusPlanned はチケット確保など具体的な予定がある状態。
	StatusPlanned WishlistStatus = "PLANNED"
	// StatusAttended は参加記録が作成された状態。
	StatusAttended WishlistStatus = "ATTENDED"
)

// WishlistEntry は「このアーティストをこの都市で観たい」という
// ユーザーの意思表示を表す。(user, artist, city) の組は一意。
type WishlistEntry struct {
	ID         string
	UserID     string
	ArtistID   string
	City       string
	Venue      string // 未定の場合は空文字列
	Priority   Priority
	Status     WishlistStatus
	TargetDate *time.Time // 目標日が未定の場合はnil
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WishlistEntryWithArtist はウィッシュリスト項目とアーティスト情報を
// 結合したモデル。artistsテーブルとJOINして取得される。
type WishlistEntryWithArtist struct {
	WishlistEntry
	ArtistName       string
	ArtistImageURL   string
	ArtistPopularity int
}

// WishlistSort はウィッシュリスト一覧の並び順種別を表す。
type WishlistSort string

const (
	// WishlistSortDefault はPENDINGのみを優先度降順・作成日時降順で返す。
	WishlistSortDefault WishlistSort = "default"
	// WishlistSortPriority は全件を優先度降順で返す。
	WishlistSortPriority WishlistSort = "priority"
	// WishlistSortDate は全件を目標日昇順（目標日なしは末尾）で返す。
	WishlistSortDate WishlistSort = "date"
)
