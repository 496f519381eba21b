package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetMe は認証済みユーザー自身のプロフィールを取得する。
	GetMe(ctx context.Context, userID string) (*model.User, error)
	// UpdateMe は自身のプロフィールを部分更新する。
	UpdateMe(ctx context.Context, userID string, patch user.ProfileUpdate) (*model.User, error)
	// List はユーザー一覧を検索条件付きで取得する。
	List(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error)
	// GetByUsername はユーザー名でユーザーを取得する。
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Create は管理者によるユーザー作成を行う。
	Create(ctx context.Context, username, email string, patch user.ProfileUpdate) (*model.User, error)
	// UpdateByUsername は管理者によるユーザー更新を行う。
	UpdateByUsername(ctx context.Context, username string, patch user.ProfileUpdate) (*model.User, error)
	// DeleteByUsername は管理者によるユーザー削除を行う。
	DeleteByUsername(ctx context.Context, username string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// userUpsertRequest はユーザー作成・更新リクエストのボディ。
// 作成時はusernameとemailが必須。更新時はnilのフィールドを変更しない。
type userUpsertRequest struct {
	Username  string  `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

// profileUpdate はリクエストボディをサービス層の更新指示に変換する。
func (req *userUpsertRequest) profileUpdate() user.ProfileUpdate {
	return user.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      req.Role,
	}
}

// Me は認証済みユーザー自身のプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetMe(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateMe は自身のプロフィールを部分更新する。
// roleフィールドは管理者以外が指定しても無視される。
// PATCH /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req userUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	u, err := h.service.UpdateMe(r.Context(), identity.UserID, req.profileUpdate())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// ListUsers はユーザー一覧を返す（管理者専用）。
// GET /api/users?search=&page=&page_size=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !requireUserAdmin(w, r) {
		return
	}

	p := parsePageParams(r)
	users, count, err := h.service.List(r.Context(), r.URL.Query().Get("search"), p.offset(), p.size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]userResponse, len(users))
	for i, u := range users {
		results[i] = toUserResponse(u)
	}

	writeJSON(w, http.StatusOK, newPagedResponse(r, p, count, results))
}

// CreateUser は管理者によるユーザー作成を処理する。
// 確認コードメールは送信せず、作成されたユーザーは別途サインアップでコードを取得する。
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !requireUserAdmin(w, r) {
		return
	}

	var req userUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	email := ""
	if req.Email != nil {
		email = *req.Email
	}

	u, err := h.service.Create(r.Context(), req.Username, email, req.profileUpdate())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// GetUser は指定ユーザーの情報を返す（管理者専用）。
// GET /api/users/{username}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if !requireUserAdmin(w, r) {
		return
	}

	u, err := h.service.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateUser は指定ユーザーを部分更新する（管理者専用）。
// PATCH /api/users/{username}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !requireUserAdmin(w, r) {
		return
	}

	var req userUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	u, err := h.service.UpdateByUsername(r.Context(), chi.URLParam(r, "username"), req.profileUpdate())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// DeleteUser は指定ユーザーを削除する（管理者専用）。
// DELETE /api/users/{username}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireUserAdmin(w, r) {
		return
	}

	if err := h.service.DeleteByUsername(r.Context(), chi.URLParam(r, "username")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      string(u.Role),
	}
}
