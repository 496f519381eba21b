// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/rateman/internal/middleware"
	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/policy"
)

// ページネーションのデフォルト値と上限。
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidBodyResponse はJSONボディの解析失敗レスポンスを書き込む。
func writeInvalidBodyResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeConflict,
		model.ErrCodeAuthFailed, model.ErrCodeDuplicateReview:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeCategoryNotFound,
		model.ErrCodeGenreNotFound, model.ErrCodeTitleNotFound,
		model.ErrCodeReviewNotFound, model.ErrCodeCommentNotFound:
		return http.StatusNotFound
	case model.ErrCodeMailDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requireIdentity はリクエストコンテキストから認証情報を取得する。
// 未認証の場合は401を書き込み、falseを返す。
func requireIdentity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return middleware.Identity{}, false
	}
	return identity, true
}

// requireUserAdmin はユーザー管理権限を検証する。権限がない場合は403を書き込む。
func requireUserAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return false
	}
	if !policy.CanAdministerUsers(identity.Role) {
		writeAPIErrorResponse(w, http.StatusForbidden,
			model.NewForbiddenError("ユーザー管理には管理者権限が必要です"))
		return false
	}
	return true
}

// requireCatalogAdmin はカタログ管理権限を検証する。権限がない場合は403を書き込む。
func requireCatalogAdmin(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return false
	}
	if !policy.CanManageCatalog(identity.Role) {
		writeAPIErrorResponse(w, http.StatusForbidden,
			model.NewForbiddenError("カタログ管理には管理者権限が必要です"))
		return false
	}
	return true
}

// pageParams はリクエストから解析したページネーションパラメータ。
type pageParams struct {
	page int // 1始まり
	size int
}

// parsePageParams はクエリ文字列からpage/page_sizeを解析する。
// 不正な値や範囲外の値はデフォルトに丸める。
func parsePageParams(r *http.Request) pageParams {
	p := pageParams{page: 1, size: defaultPageSize}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > maxPageSize {
				n = maxPageSize
			}
			p.size = n
		}
	}
	return p
}

// offset は0始まりのレコードオフセットを返す。
func (p pageParams) offset() int {
	return (p.page - 1) * p.size
}

// pagedResponse はページネーション付き一覧レスポンスのエンベロープ。
type pagedResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// newPagedResponse は一覧レスポンスを組み立てる。
// next/previousはリクエストURLのpageパラメータを書き換えたリンク。該当ページがない場合はnull。
func newPagedResponse(r *http.Request, p pageParams, count int, results any) pagedResponse {
	resp := pagedResponse{
		Count:   count,
		Results: results,
	}
	if p.offset()+p.size < count {
		resp.Next = pageLink(r, p.page+1, p.size)
	}
	if p.page > 1 {
		resp.Previous = pageLink(r, p.page-1, p.size)
	}
	return resp
}

// pageLink はリクエストURLのpage/page_sizeを差し替えた相対URLを返す。
func pageLink(r *http.Request, page, size int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
