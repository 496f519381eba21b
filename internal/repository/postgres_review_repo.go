package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/rateman/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
// 取得系は著者のusernameを結合して返す。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.created_at
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	review := &model.Review{}
	err := r.db.QueryRowContext(ctx,
		reviewSelect+` WHERE r.id = $1`, id,
	).Scan(
		&review.ID, &review.TitleID, &review.AuthorID, &review.AuthorUsername,
		&review.Text, &review.Score, &review.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}

	return review, nil
}

// ListByTitle は作品のレビュー一覧を新しい順で返す。
func (r *PostgresReviewRepo) ListByTitle(ctx context.Context, titleID string, offset, limit int) ([]*model.Review, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = $1`, titleID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		reviewSelect+` WHERE r.title_id = $1 ORDER BY r.created_at DESC, r.id LIMIT $2 OFFSET $3`,
		titleID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review := &model.Review{}
		if err := rows.Scan(
			&review.ID, &review.TitleID, &review.AuthorID, &review.AuthorUsername,
			&review.Text, &review.Score, &review.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, total, nil
}

// Create はレビューを作成する。
// UNIQUE(title_id, author_id)の制約違反はErrDuplicateにマッピングする。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, title_id, author_id, text, score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.TitleID, review.AuthorID,
		review.Text, review.Score, review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review for title %s by %s: %w", review.TitleID, review.AuthorID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Update はレビューの本文とスコアを更新する。
func (r *PostgresReviewRepo) Update(ctx context.Context, review *model.Review) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reviews SET text = $1, score = $2 WHERE id = $3`,
		review.Text, review.Score, review.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review %s: %w", review.ID, ErrNotFound)
	}
	return nil
}

// Delete は指定IDのレビューを削除する。紐付くcommentsはCASCADE削除される。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
