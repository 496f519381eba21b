package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/rateman/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindBySlug は指定スラッグのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM categories WHERE slug = $1`, slug,
	).Scan(&category.ID, &category.Name, &category.Slug)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}

	return category, nil
}

// List はカテゴリ一覧をname昇順で返す。searchが非空の場合はnameの完全一致で絞り込む。
func (r *PostgresCategoryRepo) List(ctx context.Context, search string, offset, limit int) ([]*model.Category, int, error) {
	where := ``
	args := []interface{}{}
	if search != "" {
		where = `WHERE name = $1`
		args = append(args, search)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, name, slug FROM categories %s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category := &model.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug); err != nil {
			return nil, 0, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, total, nil
}

// Create はカテゴリを作成する。slug重複時はErrDuplicateを返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug) VALUES ($1, $2, $3)`,
		category.ID, category.Name, category.Slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %s: %w", category.Slug, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// DeleteBySlug は指定スラッグのカテゴリを削除する。
// 紐付く作品のcategory_idはNULLになる（ON DELETE SET NULL）。
func (r *PostgresCategoryRepo) DeleteBySlug(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE slug = $1`, slug,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category %s: %w", slug, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
