// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/rateman/internal/model"
)

// ErrDuplicate はDBの一意性制約違反を表す。
// username/email/slug等の重複作成時にCreate系メソッドが返す。
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound は更新・削除対象のレコードが存在しないことを表す。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
// 一意性制約（username, email）はDBが唯一の直列化ポイントであり、
// 同時作成の競合はCreateがErrDuplicateで報告する。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。username/email重複時はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateConfirmationSecret は確認コード用シークレットを更新する。
	UpdateConfirmationSecret(ctx context.Context, userID, secret string) error

	// Update はユーザーのプロフィールとロールを更新する。
	// email重複時はErrDuplicate、対象不在時はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// List はユーザー一覧をusername昇順で返す。
	// searchが非空の場合はusernameの完全一致で絞り込む。2番目の戻り値は総件数。
	List(ctx context.Context, search string, offset, limit int) ([]*model.User, int, error)

	// DeleteByUsername は指定ユーザー名のユーザーを削除する。対象不在時はErrNotFoundを返す。
	DeleteByUsername(ctx context.Context, username string) error
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// FindBySlug は指定スラッグのカテゴリを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)

	// List はカテゴリ一覧を返す。searchが非空の場合はnameの完全一致で絞り込む。
	List(ctx context.Context, search string, offset, limit int) ([]*model.Category, int, error)

	// Create はカテゴリを作成する。slug重複時はErrDuplicateを返す。
	Create(ctx context.Context, category *model.Category) error

	// DeleteBySlug は指定スラッグのカテゴリを削除する。対象不在時はErrNotFoundを返す。
	DeleteBySlug(ctx context.Context, slug string) error
}

// GenreRepository はジャンルの永続化インターフェース。
type GenreRepository interface {
	// FindBySlug は指定スラッグのジャンルを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Genre, error)

	// FindBySlugs は指定スラッグ群のジャンルをまとめて取得する。
	// 存在しないスラッグは結果から欠落する。
	FindBySlugs(ctx context.Context, slugs []string) ([]model.Genre, error)

	// List はジャンル一覧を返す。searchが非空の場合はnameの完全一致で絞り込む。
	List(ctx context.Context, search string, offset, limit int) ([]*model.Genre, int, error)

	// Create はジャンルを作成する。slug重複時はErrDuplicateを返す。
	Create(ctx context.Context, genre *model.Genre) error

	// DeleteBySlug は指定スラッグのジャンルを削除する。対象不在時はErrNotFoundを返す。
	DeleteBySlug(ctx context.Context, slug string) error
}

// TitleRepository は作品の永続化インターフェース。
// 取得系はカテゴリ・ジャンル・レビュー平均スコア（rating）を含めて返す。
type TitleRepository interface {
	// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Title, error)

	// List はフィルタ条件に合致する作品一覧を返す。2番目の戻り値は総件数。
	List(ctx context.Context, filter model.TitleFilter, offset, limit int) ([]*model.Title, int, error)

	// Create は作品とジャンルの紐付けを同一トランザクションで作成する。
	Create(ctx context.Context, title *model.Title) error

	// Update は作品のフィールドを更新し、ジャンルの紐付けを置き換える。
	// 対象不在時はErrNotFoundを返す。
	Update(ctx context.Context, title *model.Title) error

	// Delete は指定IDの作品を削除する。対象不在時はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// ReviewRepository はレビューの永続化インターフェース。
type ReviewRepository interface {
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)

	// ListByTitle は作品のレビュー一覧を新しい順で返す。2番目の戻り値は総件数。
	ListByTitle(ctx context.Context, titleID string, offset, limit int) ([]*model.Review, int, error)

	// Create はレビューを作成する。同一作品・同一著者の重複時はErrDuplicateを返す。
	Create(ctx context.Context, review *model.Review) error

	// Update はレビューの本文とスコアを更新する。対象不在時はErrNotFoundを返す。
	Update(ctx context.Context, review *model.Review) error

	// Delete は指定IDのレビューを削除する。対象不在時はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// ListByReview はレビューのコメント一覧を新しい順で返す。2番目の戻り値は総件数。
	ListByReview(ctx context.Context, reviewID string, offset, limit int) ([]*model.Comment, int, error)

	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// Update はコメントの本文を更新する。対象不在時はErrNotFoundを返す。
	Update(ctx context.Context, comment *model.Comment) error

	// Delete は指定IDのコメントを削除する。対象不在時はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}
