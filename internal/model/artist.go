// Package model はドメインモデルを定義する。
package model

import "time"

// Artist はSpotifyカタログから取り込んだアーティストを表す。
// ウィッシュリスト登録時に初めてローカルに作成される遅延キャッシュで、
// 所有ユーザーを持たず複数のウィッシュリスト項目から共有参照される。
type Artist struct {
	ID              string
	SpotifyArtistID string
	Name            string
	Popularity      int
	ImageURL        string // 画像がない場合は空文字列
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
