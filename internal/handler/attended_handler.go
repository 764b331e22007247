package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teamrhythm/setlist/internal/attended"
	"github.com/teamrhythm/setlist/internal/model"
)

// AttendedServiceInterface は参加記録ハンドラーが必要とするサービス
// インターフェース。
type AttendedServiceInterface interface {
	MarkAttended(ctx context.Context, userID, wishlistID string, input attended.MarkAttendedInput) (*model.AttendedConcert, error)
	ListForUser(ctx context.Context, userID string) ([]model.AttendedConcertWithArtist, error)
	CountForUser(ctx context.Context, userID string) (int, error)
}

// WishlistEntryGetter は参加記録フォームの描画に必要な最小インターフェース。
// ウィッシュリストサービス全体に依存しないよう分離する。
type WishlistEntryGetter interface {
	GetEntry(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error)
}

// AttendedHandler は参加記録のHTTPハンドラー。
type AttendedHandler struct {
	service  AttendedServiceInterface
	entries  WishlistEntryGetter
	renderer *Renderer
}

// NewAttendedHandler はAttendedHandlerを生成する。
func NewAttendedHandler(service AttendedServiceInterface, entries WishlistEntryGetter, renderer *Renderer) *AttendedHandler {
	return &AttendedHandler{
		service:  service,
		entries:  entries,
		renderer: renderer,
	}
}

// attendedListPage は参加履歴一覧のテンプレートデータ。
type attendedListPage struct {
	basePage
	Concerts []model.AttendedConcertWithArtist
	Total    int
}

// attendedFormPage は参加記録フォームのテンプレートデータ。
type attendedFormPage struct {
	basePage
	WishlistID  string
	City        string
	Venue       string
	ConcertDate string
	Rating      string
	Memories    string
	FieldErrors map[string]string
}

// List は参加履歴の一覧を表示する。
// GET /attended
func (h *AttendedHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	concerts, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	total, err := h.service.CountForUser(r.Context(), userID)
	if err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	h.renderer.Render(w, "attended_list.html", attendedListPage{
		basePage: newBasePage(w, r, "参加履歴"),
		Concerts: concerts,
		Total:    total,
	})
}

// AddForm は参加記録フォームを表示する。
// GET /attended/add?wishlistId=xxx
func (h *AttendedHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	wishlistID := r.URL.Query().Get("wishlistId")
	entry, err := h.entries.GetEntry(r.Context(), userID, wishlistID)
	if err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	h.renderer.Render(w, "attended_add.html", attendedFormPage{
		basePage:    newBasePage(w, r, "参加記録をつける"),
		WishlistID:  entry.ID,
		City:        entry.City,
		Venue:       entry.Venue,
		ConcertDate: formatDate(time.Now()),
	})
}

// Add は参加記録を作成し、元のウィッシュリスト項目を参加済みにする。
// POST /attended/add
func (h *AttendedHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	form := attendedFormPage{
		WishlistID:  r.PostFormValue("wishlistId"),
		Venue:       strings.TrimSpace(r.PostFormValue("venue")),
		ConcertDate: r.PostFormValue("concertDate"),
		Rating:      r.PostFormValue("rating"),
		Memories:    r.PostFormValue("memories"),
	}

	input, fieldErrors := parseAttendedForm(form)
	if len(fieldErrors) > 0 {
		form.basePage = newBasePage(w, r, "参加記録をつける")
		form.FieldErrors = fieldErrors
		h.renderer.RenderStatus(w, http.StatusBadRequest, "attended_add.html", form)
		return
	}

	if _, err := h.service.MarkAttended(r.Context(), userID, form.WishlistID, input); err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	SetFlash(w, FlashSuccess, "参加記録を保存しました。")
	http.Redirect(w, r, "/attended", http.StatusSeeOther)
}

// parseAttendedForm は参加記録フォームを検証し、サービス入力に変換する。
// 評価の範囲検証（1〜5）はサービス層が行う。
func parseAttendedForm(form attendedFormPage) (attended.MarkAttendedInput, map[string]string) {
	fieldErrors := make(map[string]string)

	var concertDate time.Time
	if form.ConcertDate == "" {
		fieldErrors["concertDate"] = "公演日を入力してください。"
	} else {
		parsed, err := time.Parse(targetDateLayout, form.ConcertDate)
		if err != nil {
			fieldErrors["concertDate"] = "公演日はYYYY-MM-DD形式で入力してください。"
		} else {
			concertDate = parsed
		}
	}

	var rating *int
	if form.Rating != "" {
		parsed, err := strconv.Atoi(form.Rating)
		if err != nil {
			fieldErrors["rating"] = "評価は1から5の数値で入力してください。"
		} else {
			rating = &parsed
		}
	}

	return attended.MarkAttendedInput{
		ConcertDate: concertDate,
		Venue:       form.Venue,
		Rating:      rating,
		Memories:    form.Memories,
	}, fieldErrors
}
