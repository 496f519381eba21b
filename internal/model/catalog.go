package model

// Category は作品のカテゴリ（映画、書籍など）を表す。
type Category struct {
	ID   string
	Name string
	Slug string
}

// Genre は作品のジャンルを表す。
type Genre struct {
	ID   string
	Name string
	Slug string
}

// Title はレビュー対象の作品を表す。
// Ratingはレビューのスコア平均から計算される読み取り専用の値。
// レビューが1件もない場合はnil。
type Title struct {
	ID          string
	Name        string
	Year        int
	Description string
	Category    *Category
	Genres      []Genre
	Rating      *float64
}

// TitleFilter は作品一覧の絞り込み条件を表す。
// ゼロ値のフィールドは条件として適用しない。
type TitleFilter struct {
	CategorySlug string
	GenreSlug    string
	Name         string // 部分一致
	Year         int
}
