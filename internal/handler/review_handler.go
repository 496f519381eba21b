package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/rateman/internal/metrics"
	"github.com/hitoshi/rateman/internal/middleware"
	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/review"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	ListReviews(ctx context.Context, titleID string, offset, limit int) ([]*model.Review, int, error)
	GetReview(ctx context.Context, titleID, reviewID string) (*model.Review, error)
	CreateReview(ctx context.Context, titleID string, actor review.Actor, text string, score int) (*model.Review, error)
	UpdateReview(ctx context.Context, titleID, reviewID string, actor review.Actor, patch review.ReviewUpdate) (*model.Review, error)
	DeleteReview(ctx context.Context, titleID, reviewID string, actor review.Actor) error

	ListComments(ctx context.Context, titleID, reviewID string, offset, limit int) ([]*model.Comment, int, error)
	GetComment(ctx context.Context, titleID, reviewID, commentID string) (*model.Comment, error)
	CreateComment(ctx context.Context, titleID, reviewID string, actor review.Actor, text string) (*model.Comment, error)
	UpdateComment(ctx context.Context, titleID, reviewID, commentID string, actor review.Actor, text string) (*model.Comment, error)
	DeleteComment(ctx context.Context, titleID, reviewID, commentID string, actor review.Actor) error
}

// ReviewHandler はレビューとコメントのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
	metrics metrics.MetricsCollector
}

// NewReviewHandler はReviewHandlerを生成する。
// collectorがnilの場合、メトリクスは記録しない。
func NewReviewHandler(service ReviewServiceInterface, collector metrics.MetricsCollector) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		metrics: collector,
	}
}

// reviewRequest はレビュー投稿リクエストのボディ。
type reviewRequest struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// reviewUpdateRequest はレビュー更新リクエストのボディ。nilのフィールドは変更しない。
type reviewUpdateRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

// commentRequest はコメント投稿・更新リクエストのボディ。
type commentRequest struct {
	Text string `json:"text"`
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

// commentResponse はコメントのAPIレスポンス。
type commentResponse struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
}

// toActor は認証情報をサービス層の操作主体に変換する。
func toActor(identity middleware.Identity) review.Actor {
	return review.Actor{
		ID:       identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
	}
}

// ListReviews は作品のレビュー一覧を返す。
// GET /api/titles/{titleID}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	p := parsePageParams(r)
	reviews, count, err := h.service.ListReviews(r.Context(), chi.URLParam(r, "titleID"), p.offset(), p.size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]reviewResponse, len(reviews))
	for i, rev := range reviews {
		results[i] = toReviewResponse(rev)
	}

	writeJSON(w, http.StatusOK, newPagedResponse(r, p, count, results))
}

// GetReview はレビュー詳細を返す。
// GET /api/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	rev, err := h.service.GetReview(r.Context(), chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(rev))
}

// CreateReview はレビューを投稿する。1ユーザーにつき1作品1レビューまで。
// POST /api/titles/{titleID}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	rev, err := h.service.CreateReview(r.Context(), chi.URLParam(r, "titleID"), toActor(identity), req.Text, req.Score)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordReviewCreated()
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(rev))
}

// UpdateReview はレビューを部分更新する。
// 作者本人、モデレーター、管理者のみ更新できる。
// PATCH /api/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req reviewUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	rev, err := h.service.UpdateReview(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"),
		toActor(identity),
		review.ReviewUpdate{Text: req.Text, Score: req.Score},
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(rev))
}

// DeleteReview はレビューを削除する。
// 作者本人、モデレーター、管理者のみ削除できる。
// DELETE /api/titles/{titleID}/reviews/{reviewID}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteReview(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"),
		toActor(identity),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListComments はレビューのコメント一覧を返す。
// GET /api/titles/{titleID}/reviews/{reviewID}/comments
func (h *ReviewHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	p := parsePageParams(r)
	comments, count, err := h.service.ListComments(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"),
		p.offset(), p.size,
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]commentResponse, len(comments))
	for i, c := range comments {
		results[i] = toCommentResponse(c)
	}

	writeJSON(w, http.StatusOK, newPagedResponse(r, p, count, results))
}

// GetComment はコメント詳細を返す。
// GET /api/titles/{titleID}/reviews/{reviewID}/comments/{commentID}
func (h *ReviewHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetComment(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"), chi.URLParam(r, "commentID"),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// CreateComment はレビューへコメントを投稿する。
// POST /api/titles/{titleID}/reviews/{reviewID}/comments
func (h *ReviewHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	c, err := h.service.CreateComment(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"),
		toActor(identity), req.Text,
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

// UpdateComment はコメントを更新する。
// 作者本人、モデレーター、管理者のみ更新できる。
// PATCH /api/titles/{titleID}/reviews/{reviewID}/comments/{commentID}
func (h *ReviewHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	c, err := h.service.UpdateComment(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"), chi.URLParam(r, "commentID"),
		toActor(identity), req.Text,
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// DeleteComment はコメントを削除する。
// 作者本人、モデレーター、管理者のみ削除できる。
// DELETE /api/titles/{titleID}/reviews/{reviewID}/comments/{commentID}
func (h *ReviewHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteComment(
		r.Context(),
		chi.URLParam(r, "titleID"), chi.URLParam(r, "reviewID"), chi.URLParam(r, "commentID"),
		toActor(identity),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toReviewResponse はmodel.ReviewからAPIレスポンスに変換する。
func toReviewResponse(rev *model.Review) reviewResponse {
	return reviewResponse{
		ID:      rev.ID,
		Author:  rev.AuthorUsername,
		Text:    rev.Text,
		Score:   rev.Score,
		PubDate: rev.CreatedAt,
	}
}

// toCommentResponse はmodel.CommentからAPIレスポンスに変換する。
func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		ID:      c.ID,
		Author:  c.AuthorUsername,
		Text:    c.Text,
		PubDate: c.CreatedAt,
	}
}
