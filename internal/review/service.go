// Package review はレビューとコメントのドメインロジックを提供する。
//
// レビューは作品に対する1ユーザー1件のスコア付き感想、
// コメントはレビューに対する返信。本文は保存前にサニタイズされる。
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/policy"
	"github.com/hitoshi/rateman/internal/repository"
	"github.com/hitoshi/rateman/internal/security"
)

// Actor は操作を行う認証済みユーザー。
type Actor struct {
	ID       string
	Username string
	Role     model.Role
}

// ReviewUpdate はレビューの部分更新フィールド。nilのフィールドは変更しない。
type ReviewUpdate struct {
	Text  *string
	Score *int
}

// Service はレビュー・コメント管理のサービス層。
type Service struct {
	titleRepo   repository.TitleRepository
	reviewRepo  repository.ReviewRepository
	commentRepo repository.CommentRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	titleRepo repository.TitleRepository,
	reviewRepo repository.ReviewRepository,
	commentRepo repository.CommentRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		titleRepo:   titleRepo,
		reviewRepo:  reviewRepo,
		commentRepo: commentRepo,
		sanitizer:   sanitizer,
	}
}

// validateScore はレビューのスコアを検証する。
func validateScore(score int) error {
	if score < model.ScoreMin || score > model.ScoreMax {
		return model.NewValidationError(
			fmt.Sprintf("scoreは%dから%dの整数で指定してください", model.ScoreMin, model.ScoreMax))
	}
	return nil
}

// requireTitle は作品の存在を確認する。
func (s *Service) requireTitle(ctx context.Context, titleID string) error {
	title, err := s.titleRepo.FindByID(ctx, titleID)
	if err != nil {
		return fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	if title == nil {
		return model.NewTitleNotFoundError(titleID)
	}
	return nil
}

// requireReview は作品配下のレビューを取得する。
// レビューが別の作品に属している場合も未検出として扱う。
func (s *Service) requireReview(ctx context.Context, titleID, reviewID string) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	if review == nil || review.TitleID != titleID {
		return nil, model.NewReviewNotFoundError(reviewID)
	}
	return review, nil
}

// --- レビュー ---

// ListReviews は作品のレビュー一覧を新しい順で返す。
func (s *Service) ListReviews(ctx context.Context, titleID string, offset, limit int) ([]*model.Review, int, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}

	reviews, total, err := s.reviewRepo.ListByTitle(ctx, titleID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	return reviews, total, nil
}

// GetReview は作品配下の指定レビューを返す。
func (s *Service) GetReview(ctx context.Context, titleID, reviewID string) (*model.Review, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}
	return s.requireReview(ctx, titleID, reviewID)
}

// CreateReview は作品へのレビューを投稿する。
// 同一ユーザーによる同一作品への2件目はDuplicateReviewエラーになる。
func (s *Service) CreateReview(ctx context.Context, titleID string, actor Actor, text string, score int) (*model.Review, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}
	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewValidationError("textは必須です")
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	review := &model.Review{
		ID:             uuid.NewString(),
		TitleID:        titleID,
		AuthorID:       actor.ID,
		AuthorUsername: actor.Username,
		Text:           text,
		Score:          score,
		CreatedAt:      time.Now(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateReviewError()
		}
		return nil, fmt.Errorf("レビューの作成に失敗しました: %w", err)
	}

	return review, nil
}

// UpdateReview はレビューを部分更新する。
// 著者本人、モデレーター、管理者のみ実行できる。
func (s *Service) UpdateReview(ctx context.Context, titleID, reviewID string, actor Actor, patch ReviewUpdate) (*model.Review, error) {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyContent(actor.ID, actor.Role, review.AuthorID) {
		return nil, model.NewForbiddenError("他のユーザーのレビューは編集できません")
	}

	if patch.Text != nil {
		text := s.sanitizer.Sanitize(*patch.Text)
		if text == "" {
			return nil, model.NewValidationError("textは必須です")
		}
		review.Text = text
	}
	if patch.Score != nil {
		if err := validateScore(*patch.Score); err != nil {
			return nil, err
		}
		review.Score = *patch.Score
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewReviewNotFoundError(reviewID)
		}
		return nil, fmt.Errorf("レビューの更新に失敗しました: %w", err)
	}

	return review, nil
}

// DeleteReview はレビューを削除する。
// 著者本人、モデレーター、管理者のみ実行できる。
func (s *Service) DeleteReview(ctx context.Context, titleID, reviewID string, actor Actor) error {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if !policy.CanModifyContent(actor.ID, actor.Role, review.AuthorID) {
		return model.NewForbiddenError("他のユーザーのレビューは削除できません")
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReviewNotFoundError(reviewID)
		}
		return fmt.Errorf("レビューの削除に失敗しました: %w", err)
	}
	return nil
}

// --- コメント ---

// requireComment はレビュー配下のコメントを取得する。
func (s *Service) requireComment(ctx context.Context, reviewID, commentID string) (*model.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if comment == nil || comment.ReviewID != reviewID {
		return nil, model.NewCommentNotFoundError(commentID)
	}
	return comment, nil
}

// ListComments はレビューのコメント一覧を新しい順で返す。
func (s *Service) ListComments(ctx context.Context, titleID, reviewID string, offset, limit int) ([]*model.Comment, int, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}

	comments, total, err := s.commentRepo.ListByReview(ctx, reviewID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return comments, total, nil
}

// GetComment はレビュー配下の指定コメントを返す。
func (s *Service) GetComment(ctx context.Context, titleID, reviewID, commentID string) (*model.Comment, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.requireComment(ctx, reviewID, commentID)
}

// CreateComment はレビューへのコメントを投稿する。
func (s *Service) CreateComment(ctx context.Context, titleID, reviewID string, actor Actor, text string) (*model.Comment, error) {
	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewValidationError("textは必須です")
	}
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:             uuid.NewString(),
		ReviewID:       reviewID,
		AuthorID:       actor.ID,
		AuthorUsername: actor.Username,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	return comment, nil
}

// UpdateComment はコメントの本文を更新する。
// 著者本人、モデレーター、管理者のみ実行できる。
func (s *Service) UpdateComment(ctx context.Context, titleID, reviewID, commentID string, actor Actor, text string) (*model.Comment, error) {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyContent(actor.ID, actor.Role, comment.AuthorID) {
		return nil, model.NewForbiddenError("他のユーザーのコメントは編集できません")
	}

	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewValidationError("textは必須です")
	}
	comment.Text = text

	if err := s.commentRepo.Update(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewCommentNotFoundError(commentID)
		}
		return nil, fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}

	return comment, nil
}

// DeleteComment はコメントを削除する。
// 著者本人、モデレーター、管理者のみ実行できる。
func (s *Service) DeleteComment(ctx context.Context, titleID, reviewID, commentID string, actor Actor) error {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if !policy.CanModifyContent(actor.ID, actor.Role, comment.AuthorID) {
		return model.NewForbiddenError("他のユーザーのコメントは削除できません")
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCommentNotFoundError(commentID)
		}
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	return nil
}
