package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/rateman/internal/metrics"
	"github.com/hitoshi/rateman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup はユーザーを登録（または再登録）し、確認コードをメールで送信する。
	Signup(ctx context.Context, username, email string) (*model.User, error)
	// IssueToken は確認コードを検証してアクセストークンを発行する。
	IssueToken(ctx context.Context, username, code string) (string, error)
}

// AuthHandler はサインアップとトークン発行のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
// collectorがnilの場合、メトリクスは記録しない。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: collector,
	}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// signupResponse はサインアップ成功時のレスポンス。
type signupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// tokenRequest はトークン発行リクエストのボディ。
type tokenRequest struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

// tokenResponse はトークン発行成功時のレスポンス。
type tokenResponse struct {
	Token string `json:"token"`
}

// Signup はサインアップを処理する。
// 既存ユーザーの再サインアップも受け付け、新しい確認コードを送信する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	user, err := h.service.Signup(r.Context(), req.Username, req.Email)
	if err != nil {
		h.recordSignupFailure(err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSignup()
		h.metrics.RecordMailSent()
	}

	writeJSON(w, http.StatusOK, signupResponse{
		Username: user.Username,
		Email:    user.Email,
	})
}

// recordSignupFailure はメール送信失敗をメトリクスに反映する。
func (h *AuthHandler) recordSignupFailure(err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeMailDelivery {
		h.metrics.RecordMailFailure()
	}
}

// IssueToken は確認コードを検証してJWTアクセストークンを発行する。
// POST /auth/token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	token, err := h.service.IssueToken(r.Context(), req.Username, req.ConfirmationCode)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordAuthFailure()
		}
		writeTokenErrorResponse(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTokenIssued()
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// writeTokenErrorResponse はトークン発行失敗を`{"message": ...}`形式で書き込む。
// このエンドポイントのエラーボディは統一フォーマットではなくmessageのみを返す。
func writeTokenErrorResponse(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, mapAPIErrorToHTTPStatus(apiErr), map[string]string{"message": apiErr.Message})
		return
	}
	handleServiceError(w, err)
}
