// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, review, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeMailDelivery     = "MAIL_DELIVERY_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeGenreNotFound    = "GENRE_NOT_FOUND"
	ErrCodeTitleNotFound    = "TITLE_NOT_FOUND"
	ErrCodeReviewNotFound   = "REVIEW_NOT_FOUND"
	ErrCodeCommentNotFound  = "COMMENT_NOT_FOUND"
	ErrCodeDuplicateReview  = "DUPLICATE_REVIEW"
)

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewConflictError はusername/emailの一意性違反エラーを生成する。
func NewConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  "このユーザー名またはメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名またはメールアドレスを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", username),
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewAuthFailedError は確認コード不一致・期限切れエラーを生成する。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "確認コードが正しくないか、有効期限が切れています。",
		Category: "auth",
		Action:   "再度サインアップして新しい確認コードを取得してください。",
	}
}

// NewMailDeliveryError は確認コードメールの送信失敗エラーを生成する。
func NewMailDeliveryError() *APIError {
	return &APIError{
		Code:     ErrCodeMailDelivery,
		Message:  "確認コードメールの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度サインアップしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "アクセストークンを取得してリクエストに付与してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", slug),
		Category: "catalog",
		Action:   "カテゴリのスラッグを確認してください。",
	}
}

// NewGenreNotFoundError はジャンル未検出エラーを生成する。
func NewGenreNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeGenreNotFound,
		Message:  fmt.Sprintf("指定されたジャンルが見つかりません: %s", slug),
		Category: "catalog",
		Action:   "ジャンルのスラッグを確認してください。",
	}
}

// NewTitleNotFoundError は作品未検出エラーを生成する。
func NewTitleNotFoundError(titleID string) *APIError {
	return &APIError{
		Code:     ErrCodeTitleNotFound,
		Message:  fmt.Sprintf("指定された作品が見つかりません: %s", titleID),
		Category: "catalog",
		Action:   "作品IDを確認してください。",
	}
}

// NewReviewNotFoundError はレビュー未検出エラーを生成する。
func NewReviewNotFoundError(reviewID string) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: %s", reviewID),
		Category: "review",
		Action:   "レビューIDを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "review",
		Action:   "コメントIDを確認してください。",
	}
}

// NewDuplicateReviewError は同一作品への2件目のレビュー投稿エラーを生成する。
func NewDuplicateReviewError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateReview,
		Message:  "この作品には既にレビューを投稿しています。",
		Category: "review",
		Action:   "既存のレビューを編集してください。",
	}
}
