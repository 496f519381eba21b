package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/rateman/internal/model"
)

// PostgresGenreRepo はPostgreSQLを使用したジャンルリポジトリ。
type PostgresGenreRepo struct {
	db *sql.DB
}

// NewPostgresGenreRepo はPostgresGenreRepoを生成する。
func NewPostgresGenreRepo(db *sql.DB) *PostgresGenreRepo {
	return &PostgresGenreRepo{db: db}
}

// FindBySlug は指定スラッグのジャンルを取得する。見つからない場合はnilを返す。
func (r *PostgresGenreRepo) FindBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	genre := &model.Genre{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = $1`, slug,
	).Scan(&genre.ID, &genre.Name, &genre.Slug)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find genre by slug: %w", err)
	}

	return genre, nil
}

// FindBySlugs は指定スラッグ群のジャンルをslug昇順でまとめて取得する。
// 存在しないスラッグは結果から欠落する。
func (r *PostgresGenreRepo) FindBySlugs(ctx context.Context, slugs []string) ([]model.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug FROM genres WHERE slug = ANY($1) ORDER BY slug`,
		pq.Array(slugs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find genres by slugs: %w", err)
	}
	defer rows.Close()

	var genres []model.Genre
	for rows.Next() {
		var genre model.Genre
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate genres: %w", err)
	}

	return genres, nil
}

// List はジャンル一覧をname昇順で返す。searchが非空の場合はnameの完全一致で絞り込む。
func (r *PostgresGenreRepo) List(ctx context.Context, search string, offset, limit int) ([]*model.Genre, int, error) {
	where := ``
	args := []interface{}{}
	if search != "" {
		where = `WHERE name = $1`
		args = append(args, search)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM genres `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count genres: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, name, slug FROM genres %s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var genres []*model.Genre
	for rows.Next() {
		genre := &model.Genre{}
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Slug); err != nil {
			return nil, 0, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate genres: %w", err)
	}

	return genres, total, nil
}

// Create はジャンルを作成する。slug重複時はErrDuplicateを返す。
func (r *PostgresGenreRepo) Create(ctx context.Context, genre *model.Genre) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO genres (id, name, slug) VALUES ($1, $2, $3)`,
		genre.ID, genre.Name, genre.Slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("genre %s: %w", genre.Slug, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert genre: %w", err)
	}
	return nil
}

// DeleteBySlug は指定スラッグのジャンルを削除する。
// 紐付くtitle_genresはCASCADE削除される。
func (r *PostgresGenreRepo) DeleteBySlug(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM genres WHERE slug = $1`, slug,
	)
	if err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("genre %s: %w", slug, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ GenreRepository = (*PostgresGenreRepo)(nil)
