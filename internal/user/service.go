// Package user はユーザー管理のドメインロジックを提供する。
//
// 自己プロフィール（/api/users/me）の取得・更新と、
// 管理者向けのユーザーCRUDを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/rateman/internal/auth"
	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/policy"
	"github.com/hitoshi/rateman/internal/repository"
)

// ProfileUpdate はユーザーの部分更新フィールド。nilのフィールドは変更しない。
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetMe は認証済みユーザー自身のプロフィールを返す。
func (s *Service) GetMe(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return user, nil
}

// UpdateMe は認証済みユーザー自身のプロフィールを部分更新する。
//
// 一般ユーザーがroleフィールドを含むパッチを送った場合、パッチ全体を
// 黙って無視し、更新前の状態をそのまま成功として返す。エラーにはしない。
func (s *Service) UpdateMe(ctx context.Context, userID string, patch ProfileUpdate) (*model.User, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Role != nil && !policy.CanChangeOwnRole(user.Role) {
		return user, nil
	}

	return s.apply(ctx, user, patch)
}

// List はユーザー一覧を返す。searchが非空の場合はusernameの完全一致で絞り込む。
func (s *Service) List(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error) {
	users, total, err := s.userRepo.List(ctx, search, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, total, nil
}

// GetByUsername は指定ユーザー名のユーザーを返す。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

// Create は管理者によるユーザー作成を行う。
// 確認シークレットは発行しない。作成されたユーザーは
// 通常のサインアップフローを経てトークンを取得する。
func (s *Service) Create(ctx context.Context, username, email string, patch ProfileUpdate) (*model.User, error) {
	if err := auth.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}

	role := model.RoleUser
	if patch.Role != nil {
		role = model.Role(*patch.Role)
		if !role.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("不正なroleです: %s", *patch.Role))
		}
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	return user, nil
}

// UpdateByUsername は管理者による指定ユーザーの部分更新を行う。
// roleの変更も反映される。
func (s *Service) UpdateByUsername(ctx context.Context, username string, patch ProfileUpdate) (*model.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, patch)
}

// DeleteByUsername は管理者による指定ユーザーの削除を行う。
func (s *Service) DeleteByUsername(ctx context.Context, username string) error {
	if err := s.userRepo.DeleteByUsername(ctx, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError(username)
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}

// apply はpatchの非nilフィールドをuserに反映して保存する。
func (s *Service) apply(ctx context.Context, user *model.User, patch ProfileUpdate) (*model.User, error) {
	if patch.Email != nil {
		if err := auth.ValidateEmail(*patch.Email); err != nil {
			return nil, err
		}
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Role != nil {
		role := model.Role(*patch.Role)
		if !role.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("不正なroleです: %s", *patch.Role))
		}
		user.Role = role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError()
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError(user.Username)
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	return user, nil
}
