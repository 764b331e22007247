// Package wishlist はコンサートウィッシュリストのドメインロジックを提供する。
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teamrhythm/setlist/internal/catalog"
	"github.com/teamrhythm/setlist/internal/model"
	"github.com/teamrhythm/setlist/internal/repository"
	"github.com/teamrhythm/setlist/internal/security"
)

// ArtistCatalog はSpotifyカタログへの参照インターフェース。
type ArtistCatalog interface {
	// SearchArtists は名前でアーティストを検索する。
	SearchArtists(ctx context.Context, query string) ([]catalog.ArtistInfo, error)
	// GetArtist はSpotifyアーティストIDで単一アーティストを取得する。
	// 見つからない場合はnilを返す。
	GetArtist(ctx context.Context, spotifyArtistID string) (*catalog.ArtistInfo, error)
}

// CreateInput はウィッシュリスト項目作成の入力。
type CreateInput struct {
	SpotifyArtistID string
	City            string
	Venue           string
	Priority        model.Priority
	TargetDate      *time.Time
	Notes           string
}

// UpdateInput はウィッシュリスト項目更新の入力。
type UpdateInput struct {
	City       string
	Venue      string
	Priority   model.Priority
	TargetDate *time.Time
	Notes      string
}

// Service はウィッシュリスト管理のサービス層。
// 項目のCRUD、アーティストの遅延取り込み、一覧の並べ替えを提供する。
type Service struct {
	wishlistRepo repository.WishlistRepository
	artistRepo   repository.ArtistRepository
	catalog      ArtistCatalog
	sanitizer    security.TextSanitizerService
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	wishlistRepo repository.WishlistRepository,
	artistRepo repository.ArtistRepository,
	artistCatalog ArtistCatalog,
	sanitizer security.TextSanitizerService,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		wishlistRepo: wishlistRepo,
		artistRepo:   artistRepo,
		catalog:      artistCatalog,
		sanitizer:    sanitizer,
		logger:       logger,
	}
}

// SearchArtists はカタログからアーティストを検索する。
func (s *Service) SearchArtists(ctx context.Context, query string) ([]catalog.ArtistInfo, error) {
	results, err := s.catalog.SearchArtists(ctx, query)
	if err != nil {
		return nil, model.NewCatalogFailedError(err.Error())
	}
	return results, nil
}

// CreateEntry はウィッシュリスト項目を作成する。
// アーティストがローカルに未取り込みの場合はカタログから取得して作成する。
// 同一 (user, artist, city) の項目が既にある場合はDUPLICATE_WISHLISTエラー。
func (s *Service) CreateEntry(ctx context.Context, userID string, input CreateInput) (*model.WishlistEntry, error) {
	if input.City == "" {
		return nil, fmt.Errorf("都市は必須です")
	}

	artist, err := s.findOrCreateArtist(ctx, input.SpotifyArtistID)
	if err != nil {
		return nil, err
	}

	existing, err := s.wishlistRepo.FindByUserArtistCity(ctx, userID, artist.ID, input.City)
	if err != nil {
		return nil, fmt.Errorf("ウィッシュリストの重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateWishlistError()
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := time.Now()
	entry := &model.WishlistEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		ArtistID:   artist.ID,
		City:       input.City,
		Venue:      input.Venue,
		Priority:   priority,
		Status:     model.StatusPending,
		TargetDate: input.TargetDate,
		Notes:      s.sanitizer.Sanitize(input.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.wishlistRepo.Create(ctx, entry); err != nil {
		// 事前確認の後に他リクエストが同一項目を作成したレース
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateWishlistError()
		}
		return nil, fmt.Errorf("ウィッシュリスト項目の作成に失敗しました: %w", err)
	}

	s.logger.Info("ウィッシュリスト項目を作成しました",
		slog.String("user_id", userID),
		slog.String("artist", artist.Name),
		slog.String("city", input.City))

	return entry, nil
}

// findOrCreateArtist はSpotifyアーティストIDでローカルのアーティストを取得し、
// なければカタログから取り込んで作成する。
// 同時作成レースで一意制約に当たった場合は再読込して勝者の行を返す。
func (s *Service) findOrCreateArtist(ctx context.Context, spotifyArtistID string) (*model.Artist, error) {
	if spotifyArtistID == "" {
		return nil, model.NewArtistNotFoundError(spotifyArtistID)
	}

	artist, err := s.artistRepo.FindBySpotifyArtistID(ctx, spotifyArtistID)
	if err != nil {
		return nil, fmt.Errorf("アーティストの取得に失敗しました: %w", err)
	}
	if artist != nil {
		return artist, nil
	}

	info, err := s.catalog.GetArtist(ctx, spotifyArtistID)
	if err != nil {
		return nil, model.NewCatalogFailedError(err.Error())
	}
	if info == nil {
		return nil, model.NewArtistNotFoundError(spotifyArtistID)
	}

	now := time.Now()
	artist = &model.Artist{
		ID:              uuid.New().String(),
		SpotifyArtistID: info.SpotifyArtistID,
		Name:            info.Name,
		Popularity:      info.Popularity,
		ImageURL:        info.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.artistRepo.Create(ctx, artist); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// 他リクエストが先に作成した場合はその行を使う
			winner, findErr := s.artistRepo.FindBySpotifyArtistID(ctx, spotifyArtistID)
			if findErr != nil {
				return nil, fmt.Errorf("アーティストの再取得に失敗しました: %w", findErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("アーティストの作成が競合しましたが再取得できませんでした: %s", spotifyArtistID)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("アーティストの作成に失敗しました: %w", err)
	}

	return artist, nil
}

// GetEntry は指定IDの項目を取得する。所有者以外にはUNAUTHORIZEDエラー。
func (s *Service) GetEntry(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error) {
	entry, err := s.findOwnedEntry(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateEntry は項目の編集可能フィールドを更新する。所有者以外にはUNAUTHORIZEDエラー。
func (s *Service) UpdateEntry(ctx context.Context, userID, wishlistID string, input UpdateInput) (*model.WishlistEntry, error) {
	entry, err := s.findOwnedEntry(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}

	if input.City == "" {
		return nil, fmt.Errorf("都市は必須です")
	}

	// 都市の変更は既存の (user, artist, city) と衝突しうる
	if input.City != entry.City {
		existing, err := s.wishlistRepo.FindByUserArtistCity(ctx, userID, entry.ArtistID, input.City)
		if err != nil {
			return nil, fmt.Errorf("ウィッシュリストの重複確認に失敗しました: %w", err)
		}
		if existing != nil {
			return nil, model.NewDuplicateWishlistError()
		}
	}

	entry.City = input.City
	entry.Venue = input.Venue
	if input.Priority != "" {
		entry.Priority = input.Priority
	}
	entry.TargetDate = input.TargetDate
	entry.Notes = s.sanitizer.Sanitize(input.Notes)

	if err := s.wishlistRepo.Update(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateWishlistError()
		}
		return nil, fmt.Errorf("ウィッシュリスト項目の更新に失敗しました: %w", err)
	}

	return entry, nil
}

// DeleteEntry は項目を削除する。所有者以外にはUNAUTHORIZEDエラー。
func (s *Service) DeleteEntry(ctx context.Context, userID, wishlistID string) error {
	if _, err := s.findOwnedEntry(ctx, userID, wishlistID); err != nil {
		return err
	}

	if err := s.wishlistRepo.Delete(ctx, wishlistID); err != nil {
		return fmt.Errorf("ウィッシュリスト項目の削除に失敗しました: %w", err)
	}

	s.logger.Info("ウィッシュリスト項目を削除しました",
		slog.String("user_id", userID),
		slog.String("wishlist_id", wishlistID))

	return nil
}

// ListEntries は指定された並び順でウィッシュリスト一覧を返す。
// 未知の並び順はデフォルト（PENDINGのみ、優先度降順）として扱う。
func (s *Service) ListEntries(ctx context.Context, userID string, sort model.WishlistSort) ([]model.WishlistEntryWithArtist, error) {
	var (
		entries []model.WishlistEntryWithArtist
		err     error
	)
	switch sort {
	case model.WishlistSortPriority:
		entries, err = s.wishlistRepo.ListByUserIDOrderByPriority(ctx, userID)
	case model.WishlistSortDate:
		entries, err = s.wishlistRepo.ListByUserIDOrderByTargetDate(ctx, userID)
	default:
		entries, err = s.wishlistRepo.ListPendingByUserID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("ウィッシュリスト一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// findOwnedEntry は項目を取得し、所有者チェックを行う。
func (s *Service) findOwnedEntry(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error) {
	entry, err := s.wishlistRepo.FindByID(ctx, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("ウィッシュリスト項目の取得に失敗しました: %w", err)
	}
	if entry == nil {
		return nil, model.NewWishlistNotFoundError(wishlistID)
	}
	if entry.UserID != userID {
		return nil, model.NewUnauthorizedError()
	}
	return entry, nil
}
