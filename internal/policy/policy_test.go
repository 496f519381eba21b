package policy

import (
	"testing"

	"github.com/hitoshi/rateman/internal/model"
)

// カタログ書き込みが管理者のみに許可されることを検証
func TestCanManageCatalog(t *testing.T) {
	tests := []struct {
		role model.Role
		want bool
	}{
		{model.RoleUser, false},
		{model.RoleModerator, false},
		{model.RoleAdmin, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := CanManageCatalog(tt.role); got != tt.want {
				t.Errorf("CanManageCatalog(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

// ユーザー管理操作が管理者のみに許可されることを検証
func TestCanAdministerUsers(t *testing.T) {
	tests := []struct {
		role model.Role
		want bool
	}{
		{model.RoleUser, false},
		{model.RoleModerator, false},
		{model.RoleAdmin, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := CanAdministerUsers(tt.role); got != tt.want {
				t.Errorf("CanAdministerUsers(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

// レビュー・コメント変更の許可判定を検証
func TestCanModifyContent(t *testing.T) {
	const authorID = "author-1"

	tests := []struct {
		name      string
		actorID   string
		actorRole model.Role
		want      bool
	}{
		{"著者本人は変更できる", authorID, model.RoleUser, true},
		{"他人の一般ユーザーは変更できない", "other-1", model.RoleUser, false},
		{"モデレーターは他人の投稿を変更できる", "mod-1", model.RoleModerator, true},
		{"管理者は他人の投稿を変更できる", "admin-1", model.RoleAdmin, true},
		{"著者本人は管理者でなくても変更できる", authorID, model.RoleUser, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanModifyContent(tt.actorID, tt.actorRole, authorID)
			if got != tt.want {
				t.Errorf("CanModifyContent(%q, %q, %q) = %v, want %v",
					tt.actorID, tt.actorRole, authorID, got, tt.want)
			}
		})
	}
}

// 自己プロフィール更新でのロール変更許可を検証
func TestCanChangeOwnRole(t *testing.T) {
	tests := []struct {
		role model.Role
		want bool
	}{
		{model.RoleUser, false},
		{model.RoleModerator, true},
		{model.RoleAdmin, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := CanChangeOwnRole(tt.role); got != tt.want {
				t.Errorf("CanChangeOwnRole(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}
