package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teamrhythm/setlist/internal/middleware"
	"github.com/teamrhythm/setlist/internal/model"
	"github.com/teamrhythm/setlist/internal/wishlist"
)

// targetDateLayout はフォームのdate入力の形式。
const targetDateLayout = "2006-01-02"

// WishlistServiceInterface はウィッシュリストハンドラーが必要とする
// サービスインターフェース。
type WishlistServiceInterface interface {
	CreateEntry(ctx context.Context, userID string, input wishlist.CreateInput) (*model.WishlistEntry, error)
	GetEntry(ctx context.Context, userID, wishlistID string) (*model.WishlistEntry, error)
	UpdateEntry(ctx context.Context, userID, wishlistID string, input wishlist.UpdateInput) (*model.WishlistEntry, error)
	DeleteEntry(ctx context.Context, userID, wishlistID string) error
	ListEntries(ctx context.Context, userID string, sort model.WishlistSort) ([]model.WishlistEntryWithArtist, error)
}

// WishlistHandler はウィッシュリスト管理のHTTPハンドラー。
type WishlistHandler struct {
	service  WishlistServiceInterface
	renderer *Renderer
}

// NewWishlistHandler はWishlistHandlerを生成する。
func NewWishlistHandler(service WishlistServiceInterface, renderer *Renderer) *WishlistHandler {
	return &WishlistHandler{
		service:  service,
		renderer: renderer,
	}
}

// wishlistListPage はウィッシュリスト一覧のテンプレートデータ。
type wishlistListPage struct {
	basePage
	Entries []model.WishlistEntryWithArtist
	Sort    string
}

// wishlistFormPage はウィッシュリスト追加・編集フォームのテンプレートデータ。
type wishlistFormPage struct {
	basePage
	EntryID         string
	SpotifyArtistID string
	ArtistName      string
	City            string
	Venue           string
	Priority        model.Priority
	TargetDate      string
	Notes           string
	FieldErrors     map[string]string
}

// List はウィッシュリスト一覧を表示する。
// GET /wishlist?sort=priority|date
// sort指定なしはPENDINGのみを優先度降順・作成日時降順で表示する。
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sortParam := r.URL.Query().Get("sort")
	entries, err := h.service.ListEntries(r.Context(), userID, parseWishlistSort(sortParam))
	if err != nil {
		slog.Error("failed to list wishlist entries",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.renderer.Render(w, "wishlist_list.html", wishlistListPage{
		basePage: newBasePage(w, r, "ウィッシュリスト"),
		Entries:  entries,
		Sort:     sortParam,
	})
}

// AddForm はウィッシュリスト追加フォームを表示する。
// GET /wishlist/add?spotifyArtistId=xxx&artistName=yyy
func (h *WishlistHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	h.renderer.Render(w, "wishlist_add.html", wishlistFormPage{
		basePage:        newBasePage(w, r, "ウィッシュリストに追加"),
		SpotifyArtistID: r.URL.Query().Get("spotifyArtistId"),
		ArtistName:      r.URL.Query().Get("artistName"),
		Priority:        model.PriorityMedium,
	})
}

// Add はウィッシュリスト項目を作成する。
// POST /wishlist/add
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	form := wishlistFormPage{
		SpotifyArtistID: r.PostFormValue("spotifyArtistId"),
		ArtistName:      r.PostFormValue("artistName"),
		City:            strings.TrimSpace(r.PostFormValue("city")),
		Venue:           strings.TrimSpace(r.PostFormValue("venue")),
		Priority:        model.Priority(r.PostFormValue("priority")),
		TargetDate:      r.PostFormValue("targetDate"),
		Notes:           r.PostFormValue("notes"),
	}

	targetDate, fieldErrors := validateWishlistForm(form)
	if form.SpotifyArtistID == "" {
		fieldErrors["artist"] = "アーティストを選択してください。"
	}
	if len(fieldErrors) > 0 {
		form.basePage = newBasePage(w, r, "ウィッシュリストに追加")
		form.FieldErrors = fieldErrors
		h.renderer.RenderStatus(w, http.StatusBadRequest, "wishlist_add.html", form)
		return
	}

	_, err := h.service.CreateEntry(r.Context(), userID, wishlist.CreateInput{
		SpotifyArtistID: form.SpotifyArtistID,
		City:            form.City,
		Venue:           form.Venue,
		Priority:        form.Priority,
		TargetDate:      targetDate,
		Notes:           form.Notes,
	})
	if err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	SetFlash(w, FlashSuccess, "ウィッシュリストに追加しました。")
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

// EditForm はウィッシュリスト編集フォームを表示する。
// GET /wishlist/edit/{id}
func (h *WishlistHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	h.renderer.Render(w, "wishlist_edit.html", wishlistFormPage{
		basePage:   newBasePage(w, r, "ウィッシュリストを編集"),
		EntryID:    entry.ID,
		City:       entry.City,
		Venue:      entry.Venue,
		Priority:   entry.Priority,
		TargetDate: formatDatePtr(entry.TargetDate),
		Notes:      entry.Notes,
	})
}

// Edit はウィッシュリスト項目を更新する。
// POST /wishlist/edit/{id}
func (h *WishlistHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	entryID := chi.URLParam(r, "id")
	form := wishlistFormPage{
		EntryID:    entryID,
		City:       strings.TrimSpace(r.PostFormValue("city")),
		Venue:      strings.TrimSpace(r.PostFormValue("venue")),
		Priority:   model.Priority(r.PostFormValue("priority")),
		TargetDate: r.PostFormValue("targetDate"),
		Notes:      r.PostFormValue("notes"),
	}

	targetDate, fieldErrors := validateWishlistForm(form)
	if len(fieldErrors) > 0 {
		form.basePage = newBasePage(w, r, "ウィッシュリストを編集")
		form.FieldErrors = fieldErrors
		h.renderer.RenderStatus(w, http.StatusBadRequest, "wishlist_edit.html", form)
		return
	}

	_, err := h.service.UpdateEntry(r.Context(), userID, entryID, wishlist.UpdateInput{
		City:       form.City,
		Venue:      form.Venue,
		Priority:   form.Priority,
		TargetDate: targetDate,
		Notes:      form.Notes,
	})
	if err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	SetFlash(w, FlashSuccess, "ウィッシュリストを更新しました。")
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

// Delete はウィッシュリスト項目を削除する。
// POST /wishlist/delete/{id}
func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		redirectWithServiceError(w, r, err, "/wishlist")
		return
	}

	SetFlash(w, FlashSuccess, "ウィッシュリストから削除しました。")
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

// --- ヘルパー関数 ---

// requireUserID はセッションミドルウェアが設定したユーザーIDを取り出す。
// 取り出せない場合はログインページへリダイレクトしfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return "", false
	}
	return userID, true
}

// parseWishlistSort はクエリパラメータの並び順指定を解釈する。
// 不明な値はデフォルト（PENDINGのみ）として扱う。
func parseWishlistSort(param string) model.WishlistSort {
	switch param {
	case "priority":
		return model.WishlistSortPriority
	case "date":
		return model.WishlistSortDate
	default:
		return model.WishlistSortDefault
	}
}

// validateWishlistForm は追加・編集フォームの共通検証を行う。
// 目標日が妥当な場合はパース結果を返す。
func validateWishlistForm(form wishlistFormPage) (*time.Time, map[string]string) {
	fieldErrors := make(map[string]string)

	if form.City == "" {
		fieldErrors["city"] = "都市を入力してください。"
	}

	switch form.Priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow, "":
	default:
		fieldErrors["priority"] = "優先度の指定が不正です。"
	}

	var targetDate *time.Time
	if form.TargetDate != "" {
		parsed, err := time.Parse(targetDateLayout, form.TargetDate)
		if err != nil {
			fieldErrors["targetDate"] = "目標日はYYYY-MM-DD形式で入力してください。"
		} else {
			targetDate = &parsed
		}
	}

	return targetDate, fieldErrors
}

// redirectWithServiceError はサービス層のエラーをフラッシュメッセージに
// 変換してリダイレクトする。AppError以外は汎用メッセージにする。
func redirectWithServiceError(w http.ResponseWriter, r *http.Request, err error, location string) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		SetFlash(w, FlashError, appErr.Message)
	} else {
		slog.Error("unexpected service error", slog.String("error", err.Error()))
		SetFlash(w, FlashError, "処理に失敗しました。しばらく待ってから再度お試しください。")
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
