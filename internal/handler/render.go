// Package handler はHTTPハンドラーとHTMLレンダリングを提供する。
package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/teamrhythm/setlist/internal/middleware"
	"github.com/teamrhythm/setlist/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer は埋め込みテンプレートからHTMLページを描画する。
type Renderer struct {
	templates *template.Template
}

// NewRenderer は全テンプレートをパースしたRendererを生成する。
// テンプレートはバイナリに埋め込まれるため、パース失敗は起動時に検出される。
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"priorityLabel": priorityLabel,
		"statusLabel":   statusLabel,
		"formatDate":    formatDate,
		"formatDatePtr": formatDatePtr,
	}

	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{templates: t}, nil
}

// Render はテンプレートをステータス200で描画する。
func (rd *Renderer) Render(w http.ResponseWriter, name string, data any) {
	rd.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus は指定ステータスコードでテンプレートを描画する。
// 描画途中のエラーで不完全なページを返さないよう、一度バッファに書いてから
// レスポンスへ流す。
func (rd *Renderer) RenderStatus(w http.ResponseWriter, statusCode int, name string, data any) {
	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	buf.WriteTo(w)
}

// basePage は全ページ共通のテンプレートデータ。
type basePage struct {
	Title     string
	CSRFToken string
	Flash     *Flash
}

// newBasePage は共通データを組み立てる。フラッシュメッセージは
// このタイミングでCookieから取り出して消費する。
func newBasePage(w http.ResponseWriter, r *http.Request, title string) basePage {
	return basePage{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Flash:     PopFlash(w, r),
	}
}

// priorityLabel は優先度の表示名を返す。
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "高"
	case model.PriorityMedium:
		return "中"
	case model.PriorityLow:
		return "低"
	default:
		return string(p)
	}
}

// statusLabel はウィッシュリスト状態の表示名を返す。
func statusLabel(s model.WishlistStatus) string {
	switch s {
	case model.StatusPending:
		return "未訪問"
	case model.StatusPlanned:
		return "予定あり"
	case model.StatusAttended:
		return "参加済み"
	default:
		return string(s)
	}
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// formatDatePtr は目標日のようなnil許容の日付を整形する。nilは空文字列。
func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
