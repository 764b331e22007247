package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teamrhythm/setlist/internal/model"
)

// PostgresAttendedRepo はPostgreSQLを使用した参加記録リポジトリ。
type PostgresAttendedRepo struct {
	db *sql.DB
}

// NewPostgresAttendedRepo はPostgresAttendedRepoを生成する。
func NewPostgresAttendedRepo(db *sql.DB) *PostgresAttendedRepo {
	return &PostgresAttendedRepo{db: db}
}

// CreateAndMarkAttended は参加記録の作成と元ウィッシュリスト項目の
// ステータス更新（→ ATTENDED）を同一トランザクションで実行する。
// どちらか一方だけが永続化されることはない。
func (r *PostgresAttendedRepo) CreateAndMarkAttended(ctx context.Context, rec *model.AttendedConcert) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rating sql.NullInt64
	if rec.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*rec.Rating), Valid: true}
	}
	var wishlistID sql.NullString
	if rec.WishlistID != "" {
		wishlistID = sql.NullString{String: rec.WishlistID, Valid: true}
	}

	// 参加記録を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO attended_concerts (id, user_id, artist_id, city, venue, concert_date, rating, memories, wishlist_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.UserID, rec.ArtistID,
		rec.City, rec.Venue, rec.ConcertDate,
		rating, rec.Memories, wishlistID,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attended concert: %w", err)
	}

	// 元のウィッシュリスト項目をATTENDEDに更新
	if rec.WishlistID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE concert_wishlist SET status = 'ATTENDED', updated_at = NOW() WHERE id = $1`,
			rec.WishlistID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark wishlist entry attended: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByUserID はユーザーの参加記録をアーティスト情報付きで公演日降順で返す。
func (r *PostgresAttendedRepo) ListByUserID(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.artist_id, c.city, c.venue, c.concert_date,
		        c.rating, c.memories, c.wishlist_id, c.created_at, c.updated_at,
		        a.name, a.image_url
		 FROM attended_concerts c
		 JOIN artists a ON a.id = c.artist_id
		 WHERE c.user_id = $1
		 ORDER BY c.concert_date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attended concerts: %w", err)
	}
	defer rows.Close()

	var records []model.AttendedConcertWithArtist
	for rows.Next() {
		var rec model.AttendedConcertWithArtist
		var rating sql.NullInt64
		var wishlistID sql.NullString
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ArtistID,
			&rec.City, &rec.Venue, &rec.ConcertDate,
			&rating, &rec.Memories, &wishlistID,
			&rec.CreatedAt, &rec.UpdatedAt,
			&rec.ArtistName, &rec.ArtistImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attended concert: %w", err)
		}
		if rating.Valid {
			v := int(rating.Int64)
			rec.Rating = &v
		}
		rec.WishlistID = wishlistID.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attended concerts: %w", err)
	}
	return records, nil
}

// CountByUserID はユーザーの参加記録数を返す。
func (r *PostgresAttendedRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attended_concerts WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attended concerts: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ AttendedRepository = (*PostgresAttendedRepo)(nil)
