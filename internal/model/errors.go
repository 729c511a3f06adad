// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, alert, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidEmail    = "INVALID_EMAIL"
	ErrCodeInvalidPrice    = "INVALID_PRICE"
	ErrCodeAlertLimit      = "ALERT_LIMIT"
	ErrCodeAlertNotFound   = "ALERT_NOT_FOUND"
	ErrCodeInvalidToken    = "INVALID_TOKEN"
	ErrCodeCatalogNotFound = "CATALOG_NOT_FOUND"
	ErrCodeInvalidGender   = "INVALID_GENDER"
)

// NewInvalidEmailError は無効なメールアドレスエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("無効なメールアドレスです: %s", email),
		Category: "validation",
		Action:   "正しい形式のメールアドレスを入力してください。",
	}
}

// NewInvalidPriceError は無効な目標価格エラーを生成する。
func NewInvalidPriceError(price int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  fmt.Sprintf("無効な目標価格です: %d", price),
		Category: "validation",
		Action:   "目標価格は1以上の整数ドルで指定してください。",
	}
}

// NewAlertLimitError はアラート数上限エラーを生成する。
func NewAlertLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeAlertLimit,
		Message:  fmt.Sprintf("アラート数が上限（%d件）に達しています。", limit),
		Category: "alert",
		Action:   "不要なアラートをキャンセルしてから、新しいアラートを登録してください。",
	}
}

// NewAlertNotFoundError はアラート未検出エラーを生成する。
func NewAlertNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAlertNotFound,
		Message:  fmt.Sprintf("指定されたアラートが見つかりません: %s", id),
		Category: "alert",
		Action:   "アラートIDを確認してください。",
	}
}

// NewInvalidTokenError は無効な署名トークンエラーを生成する。
// 期限切れと構造不正は区別せず、どちらも同じエラーとして扱う。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "リンクが無効か、有効期限が切れています。",
		Category: "validation",
		Action:   "最新の通知メールに記載されたリンクを使用してください。",
	}
}

// NewCatalogNotFoundError はカタログドキュメント未存在エラーを生成する。
// パイプラインが一度も完走していない場合にのみ発生する。
func NewCatalogNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogNotFound,
		Message:  "セールカタログがまだ生成されていません。",
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidGenderError は無効な性別フィルタエラーを生成する。
func NewInvalidGenderError(gender string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGender,
		Message:  fmt.Sprintf("無効な性別フィルタです: %s", gender),
		Category: "validation",
		Action:   "性別には mens、womens、unisex のいずれかを指定してください。",
	}
}
