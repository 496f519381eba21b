// Package policy は認可判定を提供する。
//
// ハンドラやサービスに散らばりがちなロール比較をここに集約し、
// どの操作を誰に許可するかを1箇所で読めるようにする。
// 判定は全て純粋関数であり、DBにもコンテキストにも依存しない。
package policy

import "github.com/hitoshi/rateman/internal/model"

// CanManageCatalog はカタログ（カテゴリ・ジャンル・作品）の書き込みを許可するか判定する。
// 作成・更新・削除は管理者のみ。読み取りは認証不要のため判定対象外。
func CanManageCatalog(role model.Role) bool {
	return role == model.RoleAdmin
}

// CanAdministerUsers はユーザー管理操作（/api/usersのCRUD）を許可するか判定する。
func CanAdministerUsers(role model.Role) bool {
	return role == model.RoleAdmin
}

// CanModifyContent はレビュー・コメントの更新・削除を許可するか判定する。
// 著者本人、モデレーター、管理者のみ許可する。
func CanModifyContent(actorID string, actorRole model.Role, authorID string) bool {
	if actorID == authorID {
		return true
	}
	return actorRole == model.RoleModerator || actorRole == model.RoleAdmin
}

// CanChangeOwnRole は自己プロフィール更新（/api/users/me）でroleフィールドを
// 含むパッチを反映してよいか判定する。
// 一般ユーザー（user）がroleを送った場合、呼び出し側はパッチ全体を黙って無視し、
// 更新前の状態を成功レスポンスとして返す。エラーにはしない。
// モデレーター以上はrole込みのパッチをそのまま適用できる。
func CanChangeOwnRole(actorRole model.Role) bool {
	return actorRole != model.RoleUser
}
