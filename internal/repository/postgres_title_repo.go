package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/rateman/internal/model"
)

// PostgresTitleRepo はPostgreSQLを使用した作品リポジトリ。
// 取得系はカテゴリ・ジャンル・レビュー平均スコアを結合して返す。
type PostgresTitleRepo struct {
	db *sql.DB
}

// NewPostgresTitleRepo はPostgresTitleRepoを生成する。
func NewPostgresTitleRepo(db *sql.DB) *PostgresTitleRepo {
	return &PostgresTitleRepo{db: db}
}

// titleSelect は作品1件分の結合済みSELECT句。
// ratingはレビューのスコア平均で、レビューが無い場合はNULL。
const titleSelect = `
	SELECT t.id, t.name, t.year, t.description,
	       c.id, c.name, c.slug,
	       AVG(r.score)
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN reviews r ON r.title_id = t.id`

// scanTitleRow は結合済みの1行をmodel.Titleに読み込む。
func scanTitleRow(scan func(dest ...interface{}) error) (*model.Title, error) {
	title := &model.Title{}
	var catID, catName, catSlug sql.NullString
	var rating sql.NullFloat64

	if err := scan(
		&title.ID, &title.Name, &title.Year, &title.Description,
		&catID, &catName, &catSlug,
		&rating,
	); err != nil {
		return nil, err
	}

	if catID.Valid {
		title.Category = &model.Category{
			ID:   catID.String,
			Name: catName.String,
			Slug: catSlug.String,
		}
	}
	if rating.Valid {
		v := rating.Float64
		title.Rating = &v
	}

	return title, nil
}

// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
func (r *PostgresTitleRepo) FindByID(ctx context.Context, id string) (*model.Title, error) {
	row := r.db.QueryRowContext(ctx,
		titleSelect+` WHERE t.id = $1 GROUP BY t.id, c.id`, id)

	title, err := scanTitleRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find title by ID: %w", err)
	}

	if err := r.attachGenres(ctx, []*model.Title{title}); err != nil {
		return nil, err
	}

	return title, nil
}

// List はフィルタ条件に合致する作品一覧をname昇順で返す。
func (r *PostgresTitleRepo) List(ctx context.Context, filter model.TitleFilter, offset, limit int) ([]*model.Title, int, error) {
	where, args := buildTitleWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count titles: %w", err)
	}

	query := fmt.Sprintf(
		`%s%s GROUP BY t.id, c.id ORDER BY t.name, t.id LIMIT $%d OFFSET $%d`,
		titleSelect, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var titles []*model.Title
	for rows.Next() {
		title, err := scanTitleRow(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate titles: %w", err)
	}

	if err := r.attachGenres(ctx, titles); err != nil {
		return nil, 0, err
	}

	return titles, total, nil
}

// buildTitleWhere はフィルタ条件からWHERE句とバインド引数を組み立てる。
// ゼロ値のフィールドは条件として適用しない。
func buildTitleWhere(filter model.TitleFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.CategorySlug != "" {
		add(`c.slug = $%d`, filter.CategorySlug)
	}
	if filter.GenreSlug != "" {
		add(`EXISTS (
			SELECT 1 FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND g.slug = $%d)`, filter.GenreSlug)
	}
	if filter.Name != "" {
		add(`t.name ILIKE '%%' || $%d || '%%'`, filter.Name)
	}
	if filter.Year != 0 {
		add(`t.year = $%d`, filter.Year)
	}

	if len(conds) == 0 {
		return ``, args
	}

	where := ` WHERE ` + conds[0]
	for _, c := range conds[1:] {
		where += ` AND ` + c
	}
	return where, args
}

// attachGenres は作品群にジャンル一覧をまとめて読み込んで紐付ける。
func (r *PostgresTitleRepo) attachGenres(ctx context.Context, titles []*model.Title) error {
	if len(titles) == 0 {
		return nil
	}

	ids := make([]string, len(titles))
	byID := make(map[string]*model.Title, len(titles))
	for i, t := range titles {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT tg.title_id, g.id, g.name, g.slug
		 FROM title_genres tg
		 JOIN genres g ON g.id = tg.genre_id
		 WHERE tg.title_id = ANY($1)
		 ORDER BY g.slug`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to load title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID string
		var genre model.Genre
		if err := rows.Scan(&titleID, &genre.ID, &genre.Name, &genre.Slug); err != nil {
			return fmt.Errorf("failed to scan title genre: %w", err)
		}
		if title, ok := byID[titleID]; ok {
			title.Genres = append(title.Genres, genre)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate title genres: %w", err)
	}

	return nil
}

// Create は作品とジャンルの紐付けを同一トランザクションで作成する。
func (r *PostgresTitleRepo) Create(ctx context.Context, title *model.Title) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryID interface{}
	if title.Category != nil {
		categoryID = title.Category.ID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO titles (id, name, year, description, category_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		title.ID, title.Name, title.Year, title.Description, categoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert title: %w", err)
	}

	if err := insertTitleGenres(ctx, tx, title.ID, title.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update は作品のフィールドを更新し、ジャンルの紐付けを置き換える。
func (r *PostgresTitleRepo) Update(ctx context.Context, title *model.Title) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryID interface{}
	if title.Category != nil {
		categoryID = title.Category.ID
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE titles SET name = $1, year = $2, description = $3, category_id = $4
		 WHERE id = $5`,
		title.Name, title.Year, title.Description, categoryID, title.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("title %s: %w", title.ID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM title_genres WHERE title_id = $1`, title.ID,
	); err != nil {
		return fmt.Errorf("failed to clear title genres: %w", err)
	}

	if err := insertTitleGenres(ctx, tx, title.ID, title.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertTitleGenres はtitle_genresの紐付けレコードを挿入する。
func insertTitleGenres(ctx context.Context, tx *sql.Tx, titleID string, genres []model.Genre) error {
	for _, genre := range genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO title_genres (title_id, genre_id) VALUES ($1, $2)`,
			titleID, genre.ID,
		); err != nil {
			return fmt.Errorf("failed to insert title genre: %w", err)
		}
	}
	return nil
}

// Delete は指定IDの作品を削除する。
// 紐付くreviews、comments、title_genresはCASCADE削除される。
func (r *PostgresTitleRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM titles WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete title: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ TitleRepository = (*PostgresTitleRepo)(nil)
