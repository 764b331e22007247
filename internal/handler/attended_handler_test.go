package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/teamrhythm/setlist/internal/attended"
	"github.com/teamrhythm/setlist/internal/model"
)

// --- モック定義 ---

// mockAttendedService はAttendedServiceInterfaceのモック実装。
type mockAttendedService struct {
	markAttendedFn func(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error)
	listForUserFn  func(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error)
	countForUserFn func(ctx context.Context, userID string) (int, error)
}

func (m *mockAttendedService) MarkAttended(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error) {
	if m.markAttendedFn != nil {
		return m.markAttendedFn(ctx, userID, wishlistID, input)
	}
	return &model.AttendedConcert{ID: "attended-1"}, nil
}

func (m *mockAttendedService) ListForUser(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAttendedService) CountForUser(ctx context.Context, userID string) (int, error) {
	if m.countForUserFn != nil {
		return m.countForUserFn(ctx, userID)
	}
	return 0, nil
}

var _ AttendedServiceInterface = (*mockAttendedService)(nil)

// mockEntryGetter はWishlistEntryGetterのモック実装。
type mockEntryGetter struct {
	getEntryFn func(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error)
}

func (m *mockEntryGetter) GetEntry(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error) {
	if m.getEntryFn != nil {
		return m.getEntryFn(ctx, userID, wishlistID)
	}
	return &model.WishlistEntry{ID: wishlistID, UserID: userID}, nil
}

var _ WishlistEntryGetter = (*mockEntryGetter)(nil)

// --- テスト ---

func TestAttendedHandler_List(t *testing.T) {
	service := &mockAttendedService{
		listForUserFn: func(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error) {
			rating := 5
			return []model.AttendedConcertWithArtist{
				{
					AttendedConcert: model.AttendedConcert{
						ID:          "attended-1",
						City:        "東京",
						Venue:       "東京ドーム",
						ConcertDate: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
						Rating:      &rating,
						Memories:    "アンコール2回",
					},
					ArtistName: "Radiohead",
				},
			}, nil
		},
		countForUserFn: func(ctx context.Context, userID string) (int, error) {
			return 12, nil
		},
	}
	h := NewAttendedHandler(service, &mockEntryGetter{}, newTestRenderer(t))

	req := asUser(httptest.NewRequest(http.MethodGet, "/attended", nil), "user-1")
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	for _, want := range []string{"Radiohead", "東京ドーム", "2026-05-03", "5 / 5", "アンコール2回", "12件"} {
		if !strings.Contains(body, want) {
			t.Errorf("参加履歴に %q が表示されていない", want)
		}
	}
}

func TestAttendedHandler_AddForm(t *testing.T) {
	getter := &mockEntryGetter{
		getEntryFn: func(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error) {
			if wishlistID != "entry-1" {
				t.Errorf("wishlistID = %q, want %q", wishlistID, "entry-1")
			}
			return &model.WishlistEntry{
				ID:     "entry-1",
				UserID: userID,
				City:   "横浜",
				Venue:  "横浜アリーナ",
			}, nil
		},
	}
	h := NewAttendedHandler(&mockAttendedService{}, getter, newTestRenderer(t))

	req := asUser(httptest.NewRequest(http.MethodGet, "/attended/add?wishlistId=entry-1", nil), "user-1")
	w := httptest.NewRecorder()
	h.AddForm(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "横浜") {
		t.Error("ウィッシュリストの都市がフォームに表示されていない")
	}
	if !strings.Contains(body, `value="entry-1"`) {
		t.Error("ウィッシュリストIDがhiddenフィールドにない")
	}
}

func TestAttendedHandler_AddForm_EntryNotFound(t *testing.T) {
	getter := &mockEntryGetter{
		getEntryFn: func(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error) {
			return nil, model.NewWishlistNotFoundError(wishlistID)
		},
	}
	h := NewAttendedHandler(&mockAttendedService{}, getter, newTestRenderer(t))

	req := asUser(httptest.NewRequest(http.MethodGet, "/attended/add?wishlistId=missing", nil), "user-1")
	w := httptest.NewRecorder()
	h.AddForm(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/wishlist" {
		t.Errorf("Location = %q, want %q", location, "/wishlist")
	}
}

func TestAttendedHandler_Add_Success(t *testing.T) {
	var gotWishlistID string
	var gotInput attended.MarkAttendedInput
	service := &mockAttendedService{
		markAttendedFn: func(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error) {
			gotWishlistID = wishlistID
			gotInput = input
			return &model.AttendedConcert{ID: "attended-1"}, nil
		},
	}
	h := NewAttendedHandler(service, &mockEntryGetter{}, newTestRenderer(t))

	req := asUser(postForm("/attended/add", url.Values{
		"wishlistId":  {"entry-1"},
		"concertDate": {"2026-05-03"},
		"venue":       {"東京ドーム"},
		"rating":      {"4"},
		"memories":    {"最高だった"},
	}), "user-1")
	w := httptest.NewRecorder()
	h.Add(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/attended" {
		t.Errorf("Location = %q, want %q", location, "/attended")
	}

	if gotWishlistID != "entry-1" {
		t.Errorf("wishlistID = %q, want %q", gotWishlistID, "entry-1")
	}
	if gotInput.ConcertDate.Format("2006-01-02") != "2026-05-03" {
		t.Errorf("ConcertDate = %v, want 2026-05-03", gotInput.ConcertDate)
	}
	if gotInput.Rating == nil || *gotInput.Rating != 4 {
		t.Errorf("Rating = %v, want 4", gotInput.Rating)
	}
	if gotInput.Venue != "東京ドーム" || gotInput.Memories != "最高だった" {
		t.Errorf("MarkAttendedInput = %+v, フォーム値が渡っていない", gotInput)
	}
}

func TestAttendedHandler_Add_NoRating(t *testing.T) {
	// 評価は任意。未入力はnilとして渡す
	var gotInput attended.MarkAttendedInput
	service := &mockAttendedService{
		markAttendedFn: func(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error) {
			gotInput = input
			return &model.AttendedConcert{ID: "attended-1"}, nil
		},
	}
	h := NewAttendedHandler(service, &mockEntryGetter{}, newTestRenderer(t))

	req := asUser(postForm("/attended/add", url.Values{
		"wishlistId":  {"entry-1"},
		"concertDate": {"2026-05-03"},
	}), "user-1")
	w := httptest.NewRecorder()
	h.Add(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if gotInput.Rating != nil {
		t.Errorf("Rating = %v, want nil", gotInput.Rating)
	}
}

func TestAttendedHandler_Add_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{
			name:   "公演日なし",
			values: url.Values{"wishlistId": {"entry-1"}},
		},
		{
			name:   "公演日の形式不正",
			values: url.Values{"wishlistId": {"entry-1"}, "concertDate": {"5月3日"}},
		},
		{
			name:   "評価が数値でない",
			values: url.Values{"wishlistId": {"entry-1"}, "concertDate": {"2026-05-03"}, "rating": {"five"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markCalled := false
			service := &mockAttendedService{
				markAttendedFn: func(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error) {
					markCalled = true
					return nil, nil
				},
			}
			h := NewAttendedHandler(service, &mockEntryGetter{}, newTestRenderer(t))

			req := asUser(postForm("/attended/add", tt.values), "user-1")
			w := httptest.NewRecorder()
			h.Add(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if markCalled {
				t.Error("検証エラーでもMarkAttendedが呼ばれた")
			}
		})
	}
}

func TestAttendedHandler_Add_UnauthorizedBecomesFlash(t *testing.T) {
	service := &mockAttendedService{
		markAttendedFn: func(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error) {
			return nil, model.NewUnauthorizedError()
		},
	}
	h := NewAttendedHandler(service, &mockEntryGetter{}, newTestRenderer(t))

	req := asUser(postForm("/attended/add", url.Values{
		"wishlistId":  {"entry-1"},
		"concertDate": {"2026-05-03"},
	}), "user-2")
	w := httptest.NewRecorder()
	h.Add(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if location := w.Header().Get("Location"); location != "/wishlist" {
		t.Errorf("Location = %q, want %q", location, "/wishlist")
	}
	if cookie := findCookie(t, w, "flash"); cookie == nil {
		t.Error("エラーフラッシュメッセージが設定されていない")
	}
}
