package handler

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookieName = "flash"

// フラッシュメッセージの種別。テンプレート側でスタイル分けに使う。
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash はリダイレクト先で一度だけ表示される通知メッセージ。
type Flash struct {
	Kind    string
	Message string
}

// SetFlash はフラッシュメッセージをCookieに保存する。
// 次のページ描画時にPopFlashで取り出されて消費される。
func SetFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash はフラッシュメッセージを取り出し、Cookieを削除する。
// メッセージが無い場合や壊れている場合はnilを返す。
func PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	decoded, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}

	kind, message, ok := strings.Cut(decoded, "|")
	if !ok || message == "" {
		return nil
	}

	return &Flash{Kind: kind, Message: message}
}
