package model

import "time"

// スコアの有効範囲。
const (
	ScoreMin = 1
	ScoreMax = 10
)

// Review は作品へのレビューを表す。
// 1ユーザーにつき1作品1レビューまで（title_id + author_idで一意）。
type Review struct {
	ID             string
	TitleID        string
	AuthorID       string
	AuthorUsername string
	Text           string
	Score          int
	CreatedAt      time.Time
}

// Comment はレビューへのコメントを表す。
type Comment struct {
	ID             string
	ReviewID       string
	AuthorID       string
	AuthorUsername string
	Text           string
	CreatedAt      time.Time
}
