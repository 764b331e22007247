package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/teamrhythm/setlist/internal/model"
)

// PostgresWishlistRepo はPostgreSQLを使用したウィッシュリストリポジトリ。
type PostgresWishlistRepo struct {
	db *sql.DB
}

// NewPostgresWishlistRepo はPostgresWishlistRepoを生成する。
func NewPostgresWishlistRepo(db *sql.DB) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{db: db}
}

const wishlistColumns = `id, user_id, artist_id, city, venue, priority, status, target_date, notes, created_at, updated_at`

func scanWishlistEntry(row *sql.Row) (*model.WishlistEntry, error) {
	entry := &model.WishlistEntry{}
	var targetDate sql.NullTime
	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.ArtistID,
		&entry.City, &entry.Venue, &entry.Priority, &entry.Status,
		&targetDate, &entry.Notes,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if targetDate.Valid {
		entry.TargetDate = &targetDate.Time
	}
	return entry, nil
}

// FindByID は指定IDの項目を取得する。見つからない場合はnilを返す。
func (r *PostgresWishlistRepo) FindByID(ctx context.Context, id string) (*model.WishlistEntry, error) {
	entry, err := scanWishlistEntry(r.db.QueryRowContext(ctx,
		`SELECT `+wishlistColumns+` FROM concert_wishlist WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist entry by ID: %w", err)
	}
	return entry, nil
}

// FindByUserArtistCity は (user, artist, city) で項目を検索する。見つからない場合はnilを返す。
func (r *PostgresWishlistRepo) FindByUserArtistCity(ctx context.Context, userID, artistID, city string) (*model.WishlistEntry, error) {
	entry, err := scanWishlistEntry(r.db.QueryRowContext(ctx,
		`SELECT `+wishlistColumns+` FROM concert_wishlist
		 WHERE user_id = $1 AND artist_id = $2 AND city = $3`,
		userID, artistID, city,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist entry by user/artist/city: %w", err)
	}
	return entry, nil
}

// Create は項目を作成する。(user, artist, city) の一意制約違反はErrDuplicateとして返す。
func (r *PostgresWishlistRepo) Create(ctx context.Context, entry *model.WishlistEntry) error {
	var targetDate sql.NullTime
	if entry.TargetDate != nil {
		targetDate = sql.NullTime{Time: *entry.TargetDate, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO concert_wishlist (id, user_id, artist_id, city, venue, priority, status, target_date, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.UserID, entry.ArtistID,
		entry.City, entry.Venue, entry.Priority, entry.Status,
		targetDate, entry.Notes,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("failed to insert wishlist entry: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert wishlist entry: %w", err)
	}
	return nil
}

// Update は項目のcity, venue, priority, target_date, notesを上書きする。
func (r *PostgresWishlistRepo) Update(ctx context.Context, entry *model.WishlistEntry) error {
	var targetDate sql.NullTime
	if entry.TargetDate != nil {
		targetDate = sql.NullTime{Time: *entry.TargetDate, Valid: true}
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE concert_wishlist
		 SET city = $1, venue = $2, priority = $3, target_date = $4, notes = $5, updated_at = NOW()
		 WHERE id = $6`,
		entry.City, entry.Venue, entry.Priority, targetDate, entry.Notes, entry.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("failed to update wishlist entry: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to update wishlist entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wishlist entry not found: %s", entry.ID)
	}
	return nil
}

// Delete は指定IDの項目を削除する。
func (r *PostgresWishlistRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM concert_wishlist WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist entry: %w", err)
	}
	return nil
}

const wishlistWithArtistSelect = `
	SELECT w.id, w.user_id, w.artist_id, w.city, w.venue, w.priority, w.status,
	       w.target_date, w.notes, w.created_at, w.updated_at,
	       a.name, a.image_url, a.popularity
	FROM concert_wishlist w
	JOIN artists a ON a.id = w.artist_id`

// 優先度の降順比較用。HIGH > MEDIUM > LOW、未知の値は末尾。
const priorityWeightExpr = `CASE w.priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END`

func (r *PostgresWishlistRepo) queryWithArtist(ctx context.Context, query string, args ...any) ([]model.WishlistEntryWithArtist, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.WishlistEntryWithArtist
	for rows.Next() {
		var e model.WishlistEntryWithArtist
		var targetDate sql.NullTime
		err := rows.Scan(
			&e.ID, &e.UserID, &e.ArtistID,
			&e.City, &e.Venue, &e.Priority, &e.Status,
			&targetDate, &e.Notes,
			&e.CreatedAt, &e.UpdatedAt,
			&e.ArtistName, &e.ArtistImageURL, &e.ArtistPopularity,
		)
		if err != nil {
			return nil, err
		}
		if targetDate.Valid {
			t := targetDate.Time
			e.TargetDate = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListPendingByUserID はPENDINGの項目をアーティスト情報付きで返す。
// 並び順: 優先度降順（HIGH > MEDIUM > LOW）、同優先度内は作成日時降順。
func (r *PostgresWishlistRepo) ListPendingByUserID(ctx context.Context, userID string) ([]model.WishlistEntryWithArtist, error) {
	entries, err := r.queryWithArtist(ctx,
		wishlistWithArtistSelect+`
		 WHERE w.user_id = $1 AND w.status = 'PENDING'
		 ORDER BY `+priorityWeightExpr+` DESC, w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wishlist entries: %w", err)
	}
	return entries, nil
}

// ListByUserIDOrderByPriority は全項目を優先度降順で返す。
func (r *PostgresWishlistRepo) ListByUserIDOrderByPriority(ctx context.Context, userID string) ([]model.WishlistEntryWithArtist, error) {
	entries, err := r.queryWithArtist(ctx,
		wishlistWithArtistSelect+`
		 WHERE w.user_id = $1
		 ORDER BY `+priorityWeightExpr+` DESC, w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist entries by priority: %w", err)
	}
	return entries, nil
}

// ListByUserIDOrderByTargetDate は全項目を目標日昇順で返す。
// 目標日がNULLの項目は末尾に置く（NULLS LAST）。
func (r *PostgresWishlistRepo) ListByUserIDOrderByTargetDate(ctx context.Context, userID string) ([]model.WishlistEntryWithArtist, error) {
	entries, err := r.queryWithArtist(ctx,
		wishlistWithArtistSelect+`
		 WHERE w.user_id = $1
		 ORDER BY w.target_date ASC NULLS LAST, w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist entries by target date: %w", err)
	}
	return entries, nil
}

// compile-time interface check
var _ WishlistRepository = (*PostgresWishlistRepo)(nil)
