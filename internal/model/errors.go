// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError は統一エラーフォーマットを表す。
// 画面に表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, wishlist, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotAuthenticated  = "NOT_AUTHENTICATED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeArtistNotFound    = "ARTIST_NOT_FOUND"
	ErrCodeWishlistNotFound  = "WISHLIST_NOT_FOUND"
	ErrCodeDuplicateWishlist = "DUPLICATE_WISHLIST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidRating     = "INVALID_RATING"
	ErrCodeCatalogFailed     = "CATALOG_FAILED"
	ErrCodeUsernameTaken     = "USERNAME_TAKEN"
	ErrCodeEmailTaken        = "EMAIL_TAKEN"
	ErrCodeInvalidLogin      = "INVALID_LOGIN"
	ErrCodeAccountDisabled   = "ACCOUNT_DISABLED"
)

// NewNotAuthenticatedError は未認証エラーを生成する。
func NewNotAuthenticatedError() *AppError {
	return &AppError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "サインインが必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewArtistNotFoundError はアーティストが見つからない場合のエラーを生成する。
func NewArtistNotFoundError(spotifyArtistID string) *AppError {
	return &AppError{
		Code:     ErrCodeArtistNotFound,
		Message:  fmt.Sprintf("指定されたアーティストが見つかりません: %s", spotifyArtistID),
		Category: "catalog",
		Action:   "検索結果からもう一度選択してください。",
	}
}

// NewWishlistNotFoundError はウィッシュリスト項目が見つからない場合のエラーを生成する。
func NewWishlistNotFoundError(wishlistID string) *AppError {
	return &AppError{
		Code:     ErrCodeWishlistNotFound,
		Message:  fmt.Sprintf("指定されたウィッシュリスト項目が見つかりません: %s", wishlistID),
		Category: "wishlist",
		Action:   "一覧を再読み込みしてから確認してください。",
	}
}

// NewDuplicateWishlistError は同一 (user, artist, city) の重複登録エラーを生成する。
func NewDuplicateWishlistError() *AppError {
	return &AppError{
		Code:     ErrCodeDuplicateWishlist,
		Message:  "このアーティストは同じ都市で既にウィッシュリストに登録されています。",
		Category: "wishlist",
		Action:   "別の都市で登録するか、既存の項目を編集してください。",
	}
}

// NewUnauthorizedError は他人のウィッシュリスト項目を操作しようとした場合のエラーを生成する。
func NewUnauthorizedError() *AppError {
	return &AppError{
		Code:     ErrCodeUnauthorized,
		Message:  "このウィッシュリスト項目を操作する権限がありません。",
		Category: "auth",
		Action:   "自分のウィッシュリストの項目を選択してください。",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(rating int) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価です: %d", rating),
		Category: "validation",
		Action:   "評価は1から5の範囲で指定してください。",
	}
}

// NewCatalogFailedError はSpotifyカタログAPIの呼び出し失敗エラーを生成する。
func NewCatalogFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeCatalogFailed,
		Message:  fmt.Sprintf("Spotifyカタログの取得に失敗しました: %s", reason),
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *AppError {
	return &AppError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *AppError {
	return &AppError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログインするか、別のメールアドレスを指定してください。",
	}
}

// NewAccountDisabledError は無効化済みアカウントのログイン試行エラーを生成する。
func NewAccountDisabledError() *AppError {
	return &AppError{
		Code:     ErrCodeAccountDisabled,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "管理者にお問い合わせください。",
	}
}

// NewInvalidLoginError は認証失敗エラーを生成する。
// ユーザーの存在有無を漏らさないよう、原因を区別しない定型文を返す。
func NewInvalidLoginError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidLogin,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}
