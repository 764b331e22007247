package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teamrhythm/setlist/internal/catalog"
	"github.com/teamrhythm/setlist/internal/model"
)

// ArtistSearcher はアーティスト検索ハンドラーが必要とするインターフェース。
type ArtistSearcher interface {
	SearchArtists(ctx context.Context, query string) ([]catalog.ArtistInfo, error)
}

// ArtistHandler はアーティスト検索のHTTPハンドラー。
// 検索ページはログイン不要で、ウィッシュリストへの追加導線を提供する。
type ArtistHandler struct {
	searcher ArtistSearcher
	renderer *Renderer
}

// NewArtistHandler はArtistHandlerを生成する。
func NewArtistHandler(searcher ArtistSearcher, renderer *Renderer) *ArtistHandler {
	return &ArtistHandler{
		searcher: searcher,
		renderer: renderer,
	}
}

// artistSearchPage はアーティスト検索ページのテンプレートデータ。
type artistSearchPage struct {
	basePage
	Query        string
	Artists      []catalog.ArtistInfo
	Searched     bool
	ErrorMessage string
}

// SearchPage は検索フォームを表示する。
// GET /artists
func (h *ArtistHandler) SearchPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "artist_search.html", artistSearchPage{
		basePage: newBasePage(w, r, "アーティスト検索"),
	})
}

// Search はカタログAPIでアーティストを検索し結果を表示する。
// GET /artists/search?query=xxx
func (h *ArtistHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		http.Redirect(w, r, "/artists", http.StatusFound)
		return
	}

	artists, err := h.searcher.SearchArtists(r.Context(), query)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "検索に失敗しました。しばらく待ってから再度お試しください。"
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			statusCode = http.StatusBadGateway
			message = appErr.Message
		}
		slog.Error("artist search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		h.renderer.RenderStatus(w, statusCode, "artist_search.html", artistSearchPage{
			basePage:     newBasePage(w, r, "アーティスト検索"),
			Query:        query,
			ErrorMessage: message,
		})
		return
	}

	h.renderer.Render(w, "artist_search.html", artistSearchPage{
		basePage: newBasePage(w, r, "アーティスト検索"),
		Query:    query,
		Artists:  artists,
		Searched: true,
	})
}
