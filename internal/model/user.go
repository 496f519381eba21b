// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限レベルを表す。
// user < moderator < admin の順に権限が広がる。
type Role string

const (
	// RoleUser は一般ユーザー。自分のレビュー・コメントのみ編集できる。
	RoleUser Role = "user"
	// RoleModerator はモデレーター。全ユーザーのレビュー・コメントを編集できる。
	RoleModerator Role = "moderator"
	// RoleAdmin は管理者。カタログとユーザーの管理権限を持つ。
	RoleAdmin Role = "admin"
)

// IsValid は定義済みロールかどうかを返す。
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User はサービス利用ユーザーを表す。
// ConfirmationSecretは確認コード導出用のユーザーごとのシークレットで、
// サインアップのたびに再生成される。
type User struct {
	ID                 string
	Username           string
	Email              string
	FirstName          string
	LastName           string
	Bio                string
	Role               Role
	ConfirmationSecret string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
