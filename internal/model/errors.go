// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// バリデーションエラーの場合はFieldsに項目ごとの失敗理由を列挙する。
type APIError struct {
	Code     string           // エラーコード
	Message  string           // エラーメッセージ
	Category string           // カテゴリ: auth, permission, validation, deal, system
	Action   string           // ユーザー向け対処方法
	Fields   []FieldViolation // バリデーション失敗項目（validationカテゴリのみ）
}

// FieldViolation はバリデーションに失敗した項目と理由を表す。
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeDealNotFound     = "DEAL_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeInvalidDealType  = "INVALID_DEAL_TYPE"
	ErrCodeInvalidRole      = "INVALID_ROLE"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewPermissionDeniedError は権限不足エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "この操作を行う権限がありません。",
		Category: "permission",
		Action:   "担当者または管理者に操作を依頼してください。",
	}
}

// NewDealNotFoundError は案件未検出エラーを生成する。
func NewDealNotFoundError(dealID string) *APIError {
	return &APIError{
		Code:     ErrCodeDealNotFound,
		Message:  fmt.Sprintf("指定された案件が見つかりません: %s", dealID),
		Category: "deal",
		Action:   "案件IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
// violationsには失敗した項目ごとの理由を列挙する。
func NewValidationError(violations []FieldViolation) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラー内容を確認して修正してください。",
		Fields:   violations,
	}
}

// NewInvalidDealTypeError は無効な案件種別エラーを生成する。
func NewInvalidDealTypeError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDealType,
		Message:  fmt.Sprintf("無効な案件種別です: %s", value),
		Category: "validation",
		Action:   "案件種別には RENTAL または SALES を指定してください。",
	}
}

// NewInvalidRoleError は無効な役割エラーを生成する。
func NewInvalidRoleError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効な役割です: %s", value),
		Category: "validation",
		Action:   "役割には ADMIN、MANAGER、AGENT、VIEWER のいずれかを指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
