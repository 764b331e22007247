package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/teamrhythm/setlist/internal/model"
)

// PostgresArtistRepo はPostgreSQLを使用したアーティストリポジトリ。
type PostgresArtistRepo struct {
	db *sql.DB
}

// NewPostgresArtistRepo はPostgresArtistRepoを生成する。
func NewPostgresArtistRepo(db *sql.DB) *PostgresArtistRepo {
	return &PostgresArtistRepo{db: db}
}

func scanArtist(row *sql.Row) (*model.Artist, error) {
	artist := &model.Artist{}
	err := row.Scan(
		&artist.ID, &artist.SpotifyArtistID, &artist.Name,
		&artist.Popularity, &artist.ImageURL,
		&artist.CreatedAt, &artist.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return artist, nil
}

// FindByID は指定IDのアーティストを取得する。見つからない場合はnilを返す。
func (r *PostgresArtistRepo) FindByID(ctx context.Context, id string) (*model.Artist, error) {
	artist, err := scanArtist(r.db.QueryRowContext(ctx,
		`SELECT id, spotify_artist_id, name, popularity, image_url, created_at, updated_at
		 FROM artists WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find artist by ID: %w", err)
	}
	return artist, nil
}

// FindBySpotifyArtistID はSpotifyアーティストIDで検索する。見つからない場合はnilを返す。
func (r *PostgresArtistRepo) FindBySpotifyArtistID(ctx context.Context, spotifyArtistID string) (*model.Artist, error) {
	artist, err := scanArtist(r.db.QueryRowContext(ctx,
		`SELECT id, spotify_artist_id, name, popularity, image_url, created_at, updated_at
		 FROM artists WHERE spotify_artist_id = $1`,
		spotifyArtistID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find artist by spotify artist ID: %w", err)
	}
	return artist, nil
}

// Create はアーティストを作成する。
// spotify_artist_idの一意制約違反はErrDuplicateとして返す（同時作成レースの検出用）。
func (r *PostgresArtistRepo) Create(ctx context.Context, artist *model.Artist) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO artists (id, spotify_artist_id, name, popularity, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		artist.ID, artist.SpotifyArtistID, artist.Name,
		artist.Popularity, artist.ImageURL,
		artist.CreatedAt, artist.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("failed to insert artist: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert artist: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ArtistRepository = (*PostgresArtistRepo)(nil)
