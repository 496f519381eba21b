package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/rateman/internal/middleware"
	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/user"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	getMeFn            func(ctx context.Context, userID string) (*model.User, error)
	updateMeFn         func(ctx context.Context, userID string, patch user.ProfileUpdate) (*model.User, error)
	listFn             func(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	createFn           func(ctx context.Context, username, email string, patch user.ProfileUpdate) (*model.User, error)
	updateByUsernameFn func(ctx context.Context, username string, patch user.ProfileUpdate) (*model.User, error)
	deleteByUsernameFn func(ctx context.Context, username string) error
}

func (m *mockUserService) GetMe(ctx context.Context, userID string) (*model.User, error) {
	if m.getMeFn != nil {
		return m.getMeFn(ctx, userID)
	}
	return &model.User{ID: userID, Username: "alice", Role: model.RoleUser}, nil
}

func (m *mockUserService) UpdateMe(ctx context.Context, userID string, patch user.ProfileUpdate) (*model.User, error) {
	if m.updateMeFn != nil {
		return m.updateMeFn(ctx, userID, patch)
	}
	return &model.User{ID: userID, Username: "alice", Role: model.RoleUser}, nil
}

func (m *mockUserService) List(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, search, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return &model.User{Username: username, Role: model.RoleUser}, nil
}

func (m *mockUserService) Create(ctx context.Context, username, email string, patch user.ProfileUpdate) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, email, patch)
	}
	return &model.User{Username: username, Email: email, Role: model.RoleUser}, nil
}

func (m *mockUserService) UpdateByUsername(ctx context.Context, username string, patch user.ProfileUpdate) (*model.User, error) {
	if m.updateByUsernameFn != nil {
		return m.updateByUsernameFn(ctx, username, patch)
	}
	return &model.User{Username: username, Role: model.RoleUser}, nil
}

func (m *mockUserService) DeleteByUsername(ctx context.Context, username string) error {
	if m.deleteByUsernameFn != nil {
		return m.deleteByUsernameFn(ctx, username)
	}
	return nil
}

// withIdentity はリクエストに認証情報を注入するテストヘルパー。
func withIdentity(req *http.Request, userID, username string, role model.Role) *http.Request {
	ctx := middleware.ContextWithIdentity(req.Context(), middleware.Identity{
		UserID:   userID,
		Username: username,
		Role:     role,
	})
	return req.WithContext(ctx)
}

// withURLParam はchiのURLパラメータを注入するテストヘルパー。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx, ok := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- /api/users/me テスト ---

func TestUserHandler_Me_Success(t *testing.T) {
	svc := &mockUserService{
		getMeFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return &model.User{ID: userID, Username: "alice", Email: "alice@example.com", Role: model.RoleUser}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "user-123", "alice", model.RoleUser)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestUserHandler_Me_Unauthenticated(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestUserHandler_UpdateMe_PassesPatch(t *testing.T) {
	svc := &mockUserService{
		updateMeFn: func(ctx context.Context, userID string, patch user.ProfileUpdate) (*model.User, error) {
			if patch.Bio == nil || *patch.Bio != "hello" {
				t.Errorf("patch.Bio = %v, want %q", patch.Bio, "hello")
			}
			if patch.Email != nil {
				t.Errorf("patch.Email = %v, want nil", patch.Email)
			}
			return &model.User{ID: userID, Username: "alice", Bio: "hello", Role: model.RoleUser}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withIdentity(
		httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(`{"bio": "hello"}`)),
		"user-123", "alice", model.RoleUser)
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// --- 管理者用エンドポイントテスト ---

func TestUserHandler_ListUsers_NonAdmin_Forbidden(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		listFn: func(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error) {
			t.Error("List should not be called")
			return nil, 0, nil
		},
	})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/users", nil), "user-123", "alice", model.RoleUser)
	w := httptest.NewRecorder()

	h.ListUsers(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestUserHandler_ListUsers_Admin_ReturnsPagedResponse(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error) {
			if offset != 0 || limit != 2 {
				t.Errorf("offset, limit = %d, %d, want 0, 2", offset, limit)
			}
			return []*model.User{
				{Username: "alice", Role: model.RoleUser},
				{Username: "bob", Role: model.RoleModerator},
			}, 5, nil
		},
	}
	h := NewUserHandler(svc)

	req := withIdentity(
		httptest.NewRequest(http.MethodGet, "/api/users?page=1&page_size=2", nil),
		"admin-1", "root", model.RoleAdmin)
	w := httptest.NewRecorder()

	h.ListUsers(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp struct {
		Count    int               `json:"count"`
		Next     *string           `json:"next"`
		Previous *string           `json:"previous"`
		Results  []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 5 {
		t.Errorf("count = %d, want 5", resp.Count)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results length = %d, want 2", len(resp.Results))
	}
	if resp.Next == nil || !strings.Contains(*resp.Next, "page=2") {
		t.Errorf("next = %v, want link to page=2", resp.Next)
	}
	if resp.Previous != nil {
		t.Errorf("previous = %v, want nil", *resp.Previous)
	}
}

func TestUserHandler_CreateUser_Admin_Created(t *testing.T) {
	svc := &mockUserService{
		createFn: func(ctx context.Context, username, email string, patch user.ProfileUpdate) (*model.User, error) {
			if username != "carol" || email != "carol@example.com" {
				t.Errorf("create args = (%q, %q)", username, email)
			}
			if patch.Role == nil || *patch.Role != "moderator" {
				t.Errorf("patch.Role = %v, want moderator", patch.Role)
			}
			return &model.User{Username: username, Email: email, Role: model.RoleModerator}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withIdentity(
		httptest.NewRequest(http.MethodPost, "/api/users",
			strings.NewReader(`{"username": "carol", "email": "carol@example.com", "role": "moderator"}`)),
		"admin-1", "root", model.RoleAdmin)
	w := httptest.NewRecorder()

	h.CreateUser(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	svc := &mockUserService{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return nil, model.NewUserNotFoundError(username)
		},
	}
	h := NewUserHandler(svc)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/users/ghost", nil), "admin-1", "root", model.RoleAdmin)
	req = withURLParam(req, "username", "ghost")
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestUserHandler_DeleteUser_NoContent(t *testing.T) {
	deleted := ""
	svc := &mockUserService{
		deleteByUsernameFn: func(ctx context.Context, username string) error {
			deleted = username
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/api/users/bob", nil), "admin-1", "root", model.RoleAdmin)
	req = withURLParam(req, "username", "bob")
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if deleted != "bob" {
		t.Errorf("deleted = %q, want %q", deleted, "bob")
	}
}
