package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/rateman/internal/catalog"
	"github.com/hitoshi/rateman/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListCategories(ctx context.Context, search string, offset, limit int) ([]*model.Category, int, error)
	CreateCategory(ctx context.Context, name, slug string) (*model.Category, error)
	DeleteCategory(ctx context.Context, slug string) error

	ListGenres(ctx context.Context, search string, offset, limit int) ([]*model.Genre, int, error)
	CreateGenre(ctx context.Context, name, slug string) (*model.Genre, error)
	DeleteGenre(ctx context.Context, slug string) error

	ListTitles(ctx context.Context, filter model.TitleFilter, offset, limit int) ([]*model.Title, int, error)
	GetTitle(ctx context.Context, id string) (*model.Title, error)
	CreateTitle(ctx context.Context, input catalog.TitleInput) (*model.Title, error)
	UpdateTitle(ctx context.Context, id string, patch catalog.TitleUpdate) (*model.Title, error)
	DeleteTitle(ctx context.Context, id string) error
}

// CatalogHandler はカテゴリ・ジャンル・作品のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// slugItemRequest はカテゴリ・ジャンル作成リクエストのボディ。
type slugItemRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// slugItemResponse はカテゴリ・ジャンルのAPIレスポンス。
type slugItemResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// titleRequest は作品作成リクエストのボディ。
type titleRequest struct {
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Genre       []string `json:"genre"`
}

// titleUpdateRequest は作品更新リクエストのボディ。nilのフィールドは変更しない。
type titleUpdateRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

// titleResponse は作品のAPIレスポンス。
// ratingはレビューのスコア平均。レビューがない場合はnull。
type titleResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Year        int                `json:"year"`
	Rating      *float64           `json:"rating"`
	Description string             `json:"description"`
	Genre       []slugItemResponse `json:"genre"`
	Category    *slugItemResponse  `json:"category"`
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories?search=&page=&page_size=
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	p := parsePageParams(r)
	categories, count, err := h.service.ListCategories(r.Context(), r.URL.Query().Get("search"), p.offset(), p.size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]slugItemResponse, len(categories))
	for i, c := range categories {
		results[i] = slugItemResponse{Name: c.Name, Slug: c.Slug}
	}

	writeJSON(w, http.StatusOK, newPagedResponse(r, p, count, results))
}

// CreateCategory はカテゴリを作成する（管理者専用）。
// POST /api/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	var req slugItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.Name, req.Slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, slugItemResponse{Name: c.Name, Slug: c.Slug})
}

// DeleteCategory はカテゴリを削除する（管理者専用）。
// DELETE /api/categories/{slug}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListGenres はジャンル一覧を返す。
// GET /api/genres?search=&page=&page_size=
func (h *CatalogHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	p := parsePageParams(r)
	genres, count, err := h.service.ListGenres(r.Context(), r.URL.Query().Get("search"), p.offset(), p.size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]slugItemResponse, len(genres))
	for i, g := range genres {
		results[i] = slugItemResponse{Name: g.Name, Slug: g.Slug}
	}

	writeJSON(w, http.StatusOK, newPagedResponse(r, p, count, results))
}

// CreateGenre はジャンルを作成する（管理者専用）。
// POST /api/genres
func (h *CatalogHandler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	var req slugItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	g, err := h.service.CreateGenre(r.Context(), req.Name, req.Slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, slugItemResponse{Name: g.Name, Slug: g.Slug})
}

// DeleteGenre はジャンルを削除する（管理者専用）。
// DELETE /api/genres/{slug}
func (h *CatalogHandler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	if err := h.service.DeleteGenre(r.Context(), chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTitles は作品一覧を絞り込み条件付きで返す。
// GET /api/titles?category=&genre=&name=&year=&page=&page_size=
func (h *CatalogHandler) ListTitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TitleFilter{
		CategorySlug: q.Get("category"),
		GenreSlug:    q.Get("genre"),
		Name:         q.Get("name"),
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("yearは整数で指定してください"))
			return
		}
		filter.Year = year
	}

	p := parsePageParams(r)
	titles, count, err := h.service.ListTitles(r.Context(), filter, p.offset(), p.size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]titleResponse, len(titles))
	for i, t := range titles {
		results[i] = toTitleResponse(t)
	}

	writeJSON(w, http.StatusOK, newPagedResponse(r, p, count, results))
}

// GetTitle は作品詳細を返す。
// GET /api/titles/{titleID}
func (h *CatalogHandler) GetTitle(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTitle(r.Context(), chi.URLParam(r, "titleID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTitleResponse(t))
}

// CreateTitle は作品を作成する（管理者専用）。
// POST /api/titles
func (h *CatalogHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	t, err := h.service.CreateTitle(r.Context(), catalog.TitleInput{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTitleResponse(t))
}

// UpdateTitle は作品を部分更新する（管理者専用）。
// PATCH /api/titles/{titleID}
func (h *CatalogHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	var req titleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	t, err := h.service.UpdateTitle(r.Context(), chi.URLParam(r, "titleID"), catalog.TitleUpdate{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTitleResponse(t))
}

// DeleteTitle は作品を削除する（管理者専用）。
// DELETE /api/titles/{titleID}
func (h *CatalogHandler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	if !requireCatalogAdmin(w, r) {
		return
	}

	if err := h.service.DeleteTitle(r.Context(), chi.URLParam(r, "titleID")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toTitleResponse はmodel.TitleからAPIレスポンスに変換する。
func toTitleResponse(t *model.Title) titleResponse {
	resp := titleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       make([]slugItemResponse, len(t.Genres)),
	}
	for i, g := range t.Genres {
		resp.Genre[i] = slugItemResponse{Name: g.Name, Slug: g.Slug}
	}
	if t.Category != nil {
		resp.Category = &slugItemResponse{Name: t.Category.Name, Slug: t.Category.Slug}
	}
	return resp
}
