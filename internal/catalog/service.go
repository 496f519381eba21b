// Package catalog はカテゴリ・ジャンル・作品のドメインロジックを提供する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/repository"
)

const (
	// slugMaxLength はカテゴリ・ジャンルのスラッグ最大長。
	slugMaxLength = 50
	// nameMaxLength はカテゴリ・ジャンル・作品名の最大長。
	nameMaxLength = 256
)

// slugPattern はスラッグに許可する文字の集合。
var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// TitleInput は作品作成の入力。
type TitleInput struct {
	Name         string
	Year         int
	Description  string
	CategorySlug string
	GenreSlugs   []string
}

// TitleUpdate は作品の部分更新フィールド。nilのフィールドは変更しない。
type TitleUpdate struct {
	Name         *string
	Year         *int
	Description  *string
	CategorySlug *string
	GenreSlugs   *[]string
}

// Service はカタログ管理のサービス層。
type Service struct {
	categoryRepo repository.CategoryRepository
	genreRepo    repository.GenreRepository
	titleRepo    repository.TitleRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	categoryRepo repository.CategoryRepository,
	genreRepo repository.GenreRepository,
	titleRepo repository.TitleRepository,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		genreRepo:    genreRepo,
		titleRepo:    titleRepo,
	}
}

// validateSlug はスラッグの形式を検証する。
func validateSlug(slug string) error {
	if slug == "" {
		return model.NewValidationError("slugは必須です")
	}
	if len(slug) > slugMaxLength {
		return model.NewValidationError(fmt.Sprintf("slugは%d文字以内で指定してください", slugMaxLength))
	}
	if !slugPattern.MatchString(slug) {
		return model.NewValidationError("slugに使用できない文字が含まれています")
	}
	return nil
}

// validateName は表示名を検証する。
func validateName(name string) error {
	if name == "" {
		return model.NewValidationError("nameは必須です")
	}
	if len(name) > nameMaxLength {
		return model.NewValidationError(fmt.Sprintf("nameは%d文字以内で指定してください", nameMaxLength))
	}
	return nil
}

// validateYear は作品の年を検証する。未来の年は拒否する。
func validateYear(year int) error {
	if year <= 0 {
		return model.NewValidationError("yearは正の整数で指定してください")
	}
	if year > time.Now().Year() {
		return model.NewValidationError("未来の年は指定できません")
	}
	return nil
}

// --- カテゴリ ---

// ListCategories はカテゴリ一覧を返す。
func (s *Service) ListCategories(ctx context.Context, search string, offset, limit int) ([]*model.Category, int, error) {
	categories, total, err := s.categoryRepo.List(ctx, search, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, total, nil
}

// CreateCategory はカテゴリを作成する。
func (s *Service) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	category := &model.Category{
		ID:   uuid.NewString(),
		Name: name,
		Slug: slug,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError()
		}
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}

	return category, nil
}

// DeleteCategory は指定スラッグのカテゴリを削除する。
func (s *Service) DeleteCategory(ctx context.Context, slug string) error {
	if err := s.categoryRepo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCategoryNotFoundError(slug)
		}
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

// --- ジャンル ---

// ListGenres はジャンル一覧を返す。
func (s *Service) ListGenres(ctx context.Context, search string, offset, limit int) ([]*model.Genre, int, error) {
	genres, total, err := s.genreRepo.List(ctx, search, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("ジャンル一覧の取得に失敗しました: %w", err)
	}
	return genres, total, nil
}

// CreateGenre はジャンルを作成する。
func (s *Service) CreateGenre(ctx context.Context, name, slug string) (*model.Genre, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	genre := &model.Genre{
		ID:   uuid.NewString(),
		Name: name,
		Slug: slug,
	}
	if err := s.genreRepo.Create(ctx, genre); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError()
		}
		return nil, fmt.Errorf("ジャンルの作成に失敗しました: %w", err)
	}

	return genre, nil
}

// DeleteGenre は指定スラッグのジャンルを削除する。
func (s *Service) DeleteGenre(ctx context.Context, slug string) error {
	if err := s.genreRepo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewGenreNotFoundError(slug)
		}
		return fmt.Errorf("ジャンルの削除に失敗しました: %w", err)
	}
	return nil
}

// --- 作品 ---

// ListTitles はフィルタ条件に合致する作品一覧を返す。
func (s *Service) ListTitles(ctx context.Context, filter model.TitleFilter, offset, limit int) ([]*model.Title, int, error) {
	titles, total, err := s.titleRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("作品一覧の取得に失敗しました: %w", err)
	}
	return titles, total, nil
}

// GetTitle は指定IDの作品を返す。
func (s *Service) GetTitle(ctx context.Context, id string) (*model.Title, error) {
	title, err := s.titleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	if title == nil {
		return nil, model.NewTitleNotFoundError(id)
	}
	return title, nil
}

// CreateTitle は作品を作成する。カテゴリとジャンルは既存のスラッグを参照する。
func (s *Service) CreateTitle(ctx context.Context, input TitleInput) (*model.Title, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if err := validateYear(input.Year); err != nil {
		return nil, err
	}
	if input.CategorySlug == "" {
		return nil, model.NewValidationError("categoryは必須です")
	}
	if len(input.GenreSlugs) == 0 {
		return nil, model.NewValidationError("genreは1件以上指定してください")
	}

	category, genres, err := s.resolveRefs(ctx, input.CategorySlug, input.GenreSlugs)
	if err != nil {
		return nil, err
	}

	title := &model.Title{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Year:        input.Year,
		Description: input.Description,
		Category:    category,
		Genres:      genres,
	}
	if err := s.titleRepo.Create(ctx, title); err != nil {
		return nil, fmt.Errorf("作品の作成に失敗しました: %w", err)
	}

	return title, nil
}

// UpdateTitle は作品を部分更新する。
func (s *Service) UpdateTitle(ctx context.Context, id string, patch TitleUpdate) (*model.Title, error) {
	title, err := s.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return nil, err
		}
		title.Name = *patch.Name
	}
	if patch.Year != nil {
		if err := validateYear(*patch.Year); err != nil {
			return nil, err
		}
		title.Year = *patch.Year
	}
	if patch.Description != nil {
		title.Description = *patch.Description
	}
	if patch.CategorySlug != nil {
		category, err := s.categoryRepo.FindBySlug(ctx, *patch.CategorySlug)
		if err != nil {
			return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
		}
		if category == nil {
			return nil, model.NewCategoryNotFoundError(*patch.CategorySlug)
		}
		title.Category = category
	}
	if patch.GenreSlugs != nil {
		if len(*patch.GenreSlugs) == 0 {
			return nil, model.NewValidationError("genreは1件以上指定してください")
		}
		genres, err := s.resolveGenres(ctx, *patch.GenreSlugs)
		if err != nil {
			return nil, err
		}
		title.Genres = genres
	}

	if err := s.titleRepo.Update(ctx, title); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewTitleNotFoundError(id)
		}
		return nil, fmt.Errorf("作品の更新に失敗しました: %w", err)
	}

	return title, nil
}

// DeleteTitle は指定IDの作品を削除する。
func (s *Service) DeleteTitle(ctx context.Context, id string) error {
	if err := s.titleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewTitleNotFoundError(id)
		}
		return fmt.Errorf("作品の削除に失敗しました: %w", err)
	}
	return nil
}

// resolveRefs はカテゴリとジャンルのスラッグを実体に解決する。
func (s *Service) resolveRefs(ctx context.Context, categorySlug string, genreSlugs []string) (*model.Category, []model.Genre, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, nil, model.NewCategoryNotFoundError(categorySlug)
	}

	genres, err := s.resolveGenres(ctx, genreSlugs)
	if err != nil {
		return nil, nil, err
	}

	return category, genres, nil
}

// resolveGenres はジャンルのスラッグ群を実体に解決する。
// 存在しないスラッグが含まれていた場合はエラーを返す。
func (s *Service) resolveGenres(ctx context.Context, slugs []string) ([]model.Genre, error) {
	genres, err := s.genreRepo.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("ジャンルの取得に失敗しました: %w", err)
	}

	found := make(map[string]bool, len(genres))
	for _, g := range genres {
		found[g.Slug] = true
	}
	for _, slug := range slugs {
		if !found[slug] {
			return nil, model.NewGenreNotFoundError(slug)
		}
	}

	return genres, nil
}
