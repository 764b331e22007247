// Package model はドメインモデルを定義する。
package model

import "time"

// AttendedConcert は実際に参加した公演の記録を表す。
// 「参加済みにする」操作でのみ作成され、以後更新・削除されない。
// ArtistIDとCityは作成時点のウィッシュリスト項目からコピーされる。
type AttendedConcert struct {
	ID          string
	UserID      string
	ArtistID    string
	City        string
	Venue       string
	ConcertDate time.Time
	Rating      *int   // 1〜5。未評価の場合はnil
	Memories    string // 自由記述の思い出
	WishlistID  string // 元になったウィッシュリスト項目のID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AttendedConcertWithArtist は参加記録とアーティスト情報を結合したモデル。
type AttendedConcertWithArtist struct {
	AttendedConcert
	ArtistName     string
	ArtistImageURL string
}
