// Package attended は参加済みコンサート記録のドメインロジックを提供する。
package attended

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teamrhythm/setlist/internal/model"
	"github.com/teamrhythm/setlist/internal/repository"
	"github.com/teamrhythm/setlist/internal/security"
)

// MarkAttendedInput は「参加済みにする」操作の入力。
type MarkAttendedInput struct {
	ConcertDate time.Time
	Venue       string // 空の場合はウィッシュリスト項目の会場を引き継ぐ
	Rating      *int   // 未評価の場合はnil
	Memories    string
}

// Service は参加記録のサービス層。
// ウィッシュリスト項目の参加済み化と参加履歴の参照を提供する。
type Service struct {
	attendedRepo repository.AttendedRepository
	wishlistRepo repository.WishlistRepository
	sanitizer    security.TextSanitizerService
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	attendedRepo repository.AttendedRepository,
	wishlistRepo repository.WishlistRepository,
	sanitizer security.TextSanitizerService,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		attendedRepo: attendedRepo,
		wishlistRepo: wishlistRepo,
		sanitizer:    sanitizer,
		logger:       logger,
	}
}

// MarkAttended はウィッシュリスト項目を参加済みにする。
// 参加記録の作成と項目のステータス更新は単一トランザクションで行われ、
// 片方だけが残ることはない。所有者以外にはUNAUTHORIZEDエラー。
func (s *Service) MarkAttended(ctx context.Context, userID, wishlistID string, input MarkAttendedInput) (*model.AttendedConcert, error) {
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

	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 5 {
			return nil, model.NewInvalidRatingError(*input.Rating)
		}
	}

	venue := input.Venue
	if venue == "" {
		venue = entry.Venue
	}

	now := time.Now()
	rec := &model.AttendedConcert{
		ID:          uuid.New().String(),
		UserID:      userID,
		ArtistID:    entry.ArtistID,
		City:        entry.City,
		Venue:       venue,
		ConcertDate: input.ConcertDate,
		Rating:      input.Rating,
		Memories:    s.sanitizer.Sanitize(input.Memories),
		WishlistID:  entry.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.attendedRepo.CreateAndMarkAttended(ctx, rec); err != nil {
		return nil, fmt.Errorf("参加記録の作成に失敗しました: %w", err)
	}

	s.logger.Info("参加記録を作成しました",
		slog.String("user_id", userID),
		slog.String("wishlist_id", wishlistID),
		slog.String("city", rec.City))

	return rec, nil
}

// ListForUser はユーザーの参加記録を公演日降順で返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error) {
	records, err := s.attendedRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("参加記録一覧の取得に失敗しました: %w", err)
	}
	return records, nil
}

// CountForUser はユーザーの参加記録数を返す。
func (s *Service) CountForUser(ctx context.Context, userID string) (int, error) {
	count, err := s.attendedRepo.CountByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("参加記録数の取得に失敗しました: %w", err)
	}
	return count, nil
}
