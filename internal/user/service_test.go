package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn                 func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn           func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn              func(ctx context.Context, email string) (*model.User, error)
	createFn                   func(ctx context.Context, user *model.User) error
	updateConfirmationSecretFn func(ctx context.Context, userID, secret string) error
	updateFn                   func(ctx context.Context, user *model.User) error
	listFn                     func(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error)
	deleteByUsernameFn         func(ctx context.Context, username string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateConfirmationSecret(ctx context.Context, userID, secret string) error {
	if m.updateConfirmationSecretFn != nil {
		return m.updateConfirmationSecretFn(ctx, userID, secret)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, search, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockUserRepo) DeleteByUsername(ctx context.Context, username string) error {
	if m.deleteByUsernameFn != nil {
		return m.deleteByUsernameFn(ctx, username)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func strPtr(s string) *string { return &s }

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %q, want %q", apiErr.Code, wantCode)
	}
}

// --- GetMe / UpdateMe ---

// GetMeが自身のプロフィールを返すことを検証
func TestGetMe(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice", Role: model.RoleUser}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.GetMe(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetMe failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("user.Username = %q, want %q", user.Username, "alice")
	}
}

// トークンが有効でもユーザーが削除済みならエラーになることを検証
func TestGetMe_UserDeleted(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.GetMe(context.Background(), "gone-user")
	if err == nil {
		t.Fatal("expected error for deleted user")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// UpdateMeがプロフィールフィールドを更新することを検証
func TestUpdateMe_UpdatesFields(t *testing.T) {
	var updated *model.User
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice", Email: "alice@example.com", Role: model.RoleUser}, nil
		},
		updateFn: func(_ context.Context, user *model.User) error {
			updated = user
			return nil
		},
	}
	svc := NewService(repo)

	user, err := svc.UpdateMe(context.Background(), "user-1", ProfileUpdate{
		FirstName: strPtr("Alice"),
		Bio:       strPtr("映画好き"),
	})
	if err != nil {
		t.Fatalf("UpdateMe failed: %v", err)
	}

	if updated == nil {
		t.Fatal("expected Update to be called")
	}
	if user.FirstName != "Alice" {
		t.Errorf("user.FirstName = %q, want %q", user.FirstName, "Alice")
	}
	if user.Bio != "映画好き" {
		t.Errorf("user.Bio = %q, want %q", user.Bio, "映画好き")
	}
	// 指定しなかったフィールドは据え置き
	if user.Email != "alice@example.com" {
		t.Errorf("user.Email = %q, want unchanged", user.Email)
	}
}

// 一般ユーザーのrole昇格要求でパッチ全体が黙って無視されることを検証
func TestUpdateMe_RoleEscalationIgnoresWholePatch(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice", Bio: "元のbio", Role: model.RoleUser}, nil
		},
		updateFn: func(_ context.Context, user *model.User) error {
			t.Error("Update should not be called")
			return nil
		},
	}
	svc := NewService(repo)

	user, err := svc.UpdateMe(context.Background(), "user-1", ProfileUpdate{
		Role: strPtr("admin"),
		Bio:  strPtr("昇格したい"),
	})
	if err != nil {
		t.Fatalf("UpdateMe failed: %v", err)
	}

	// 更新前の状態が成功レスポンスとして返る
	if user.Role != model.RoleUser {
		t.Errorf("user.Role = %q, want %q (escalation must be ignored)", user.Role, model.RoleUser)
	}
	if user.Bio != "元のbio" {
		t.Errorf("user.Bio = %q, want unchanged", user.Bio)
	}
}

// 管理者は自身のroleを変更できることを検証
func TestUpdateMe_AdminCanChangeOwnRole(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "root", Role: model.RoleAdmin}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.UpdateMe(context.Background(), "admin-1", ProfileUpdate{
		Role: strPtr("moderator"),
	})
	if err != nil {
		t.Fatalf("UpdateMe failed: %v", err)
	}
	if user.Role != model.RoleModerator {
		t.Errorf("user.Role = %q, want %q", user.Role, model.RoleModerator)
	}
}

// 不正なemailで更新が拒否されることを検証
func TestUpdateMe_InvalidEmail(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice", Role: model.RoleUser}, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.UpdateMe(context.Background(), "user-1", ProfileUpdate{
		Email: strPtr("not-an-email"),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

// email重複が競合エラーになることを検証
func TestUpdateMe_EmailConflict(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice", Role: model.RoleUser}, nil
		},
		updateFn: func(_ context.Context, _ *model.User) error {
			return fmt.Errorf("user alice: %w", repository.ErrDuplicate)
		},
	}
	svc := NewService(repo)

	_, err := svc.UpdateMe(context.Background(), "user-1", ProfileUpdate{
		Email: strPtr("taken@example.com"),
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeConflict)
}

// --- 管理者CRUD ---

// Createで管理者がrole指定付きユーザーを作成できることを検証
func TestCreate_WithRole(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := NewService(repo)

	user, err := svc.Create(context.Background(), "modest", "modest@example.com", ProfileUpdate{
		Role: strPtr("moderator"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if user.Role != model.RoleModerator {
		t.Errorf("user.Role = %q, want %q", user.Role, model.RoleModerator)
	}
	if user.ConfirmationSecret != "" {
		t.Error("expected no confirmation secret for admin-created user")
	}
}

// Createでrole未指定時にuserになることを検証
func TestCreate_DefaultRole(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	user, err := svc.Create(context.Background(), "plain", "plain@example.com", ProfileUpdate{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("user.Role = %q, want %q", user.Role, model.RoleUser)
	}
}

// Createで不正なroleが拒否されることを検証
func TestCreate_InvalidRole(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.Create(context.Background(), "alice", "alice@example.com", ProfileUpdate{
		Role: strPtr("superuser"),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

// Createでusername重複が競合エラーになることを検証
func TestCreate_Duplicate(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return fmt.Errorf("user alice: %w", repository.ErrDuplicate)
		},
	}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), "alice", "alice@example.com", ProfileUpdate{})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeConflict)
}

// GetByUsernameで未知のユーザーがエラーになることを検証
func TestGetByUsername_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.GetByUsername(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected user not found error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// UpdateByUsernameで管理者がroleを変更できることを検証
func TestUpdateByUsername_RoleChange(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username, Role: model.RoleUser}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.UpdateByUsername(context.Background(), "alice", ProfileUpdate{
		Role: strPtr("moderator"),
	})
	if err != nil {
		t.Fatalf("UpdateByUsername failed: %v", err)
	}
	if user.Role != model.RoleModerator {
		t.Errorf("user.Role = %q, want %q", user.Role, model.RoleModerator)
	}
}

// DeleteByUsernameで未知のユーザーがエラーになることを検証
func TestDeleteByUsername_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		deleteByUsernameFn: func(_ context.Context, username string) error {
			return fmt.Errorf("user %s: %w", username, repository.ErrNotFound)
		},
	}
	svc := NewService(repo)

	err := svc.DeleteByUsername(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected user not found error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// Listがリポジトリの結果をそのまま返すことを検証
func TestList(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(_ context.Context, search string, offset, limit int) ([]*model.User, int, error) {
			if search != "alice" {
				t.Errorf("search = %q, want %q", search, "alice")
			}
			return []*model.User{{ID: "user-1", Username: "alice"}}, 1, nil
		},
	}
	svc := NewService(repo)

	users, total, err := svc.List(context.Background(), "alice", 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(users) != 1 {
		t.Errorf("got %d users (total %d), want 1", len(users), total)
	}
}
