// Package auth はサインアップと認証のドメインロジックを提供する。
//
// サインアップは確認コードのメール送付まで、認証はコード検証と
// アクセストークンの発行までを担う。パスワードは存在せず、
// コードはユーザーごとのシークレットから時間窓付きで導出される。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/rateman/internal/model"
	"github.com/hitoshi/rateman/internal/repository"
)

const (
	// usernameMaxLength はusernameの最大長。
	usernameMaxLength = 150
	// emailMaxLength はemailの最大長。
	emailMaxLength = 254
	// reservedUsername は/api/users/meのパス要素と衝突するため予約されている。
	reservedUsername = "me"
)

// usernamePattern はusernameに許可する文字の集合。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9.@+_-]+$`)

// Mailer は確認コードの送信に必要な機能。mailパッケージのMailerと同形。
type Mailer interface {
	SendConfirmationCode(ctx context.Context, to, code string) error
}

// Service はサインアップと認証のサービス層。
type Service struct {
	userRepo repository.UserRepository
	codes    *CodeIssuer
	tokens   *TokenManager
	mailer   Mailer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	codes *CodeIssuer,
	tokens *TokenManager,
	mailer Mailer,
) *Service {
	return &Service{
		userRepo: userRepo,
		codes:    codes,
		tokens:   tokens,
		mailer:   mailer,
	}
}

// ValidateUsername はusernameの形式を検証する。
func ValidateUsername(username string) error {
	if username == "" {
		return model.NewValidationError("usernameは必須です")
	}
	if len(username) > usernameMaxLength {
		return model.NewValidationError(fmt.Sprintf("usernameは%d文字以内で指定してください", usernameMaxLength))
	}
	if !usernamePattern.MatchString(username) {
		return model.NewValidationError("usernameに使用できない文字が含まれています")
	}
	if username == reservedUsername {
		return model.NewValidationError("このusernameは予約されています")
	}
	return nil
}

// ValidateEmail はemailの形式を検証する。
func ValidateEmail(email string) error {
	if email == "" {
		return model.NewValidationError("emailは必須です")
	}
	if len(email) > emailMaxLength {
		return model.NewValidationError(fmt.Sprintf("emailは%d文字以内で指定してください", emailMaxLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.NewValidationError("emailの形式が不正です")
	}
	return nil
}

// Signup はユーザー登録と確認コードの発行・送信を行う。
//
// 同一のusername+emailペアで再度呼ばれた場合は既存ユーザーの
// シークレットを再生成し、新しいコードを再送する（再サインアップ）。
// 再生成により旧コードは以後すべて無効になる。
// usernameかemailの片方だけが既存ユーザーと一致する場合は競合エラーを返す。
//
// メール送信に失敗した場合もユーザーとシークレットは保存済みのまま
// MailDeliveryErrorを返す。再サインアップすれば再送できる。
func (s *Service) Signup(ctx context.Context, username, email string) (*model.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.findOrCreate(ctx, username, email)
	if err != nil {
		return nil, err
	}

	// シークレットを毎回作り直すことで、過去に発行したコードを失効させる
	secret, err := s.codes.NewSecret(username)
	if err != nil {
		return nil, fmt.Errorf("シークレットの生成に失敗しました: %w", err)
	}
	if err := s.userRepo.UpdateConfirmationSecret(ctx, user.ID, secret); err != nil {
		return nil, fmt.Errorf("シークレットの保存に失敗しました: %w", err)
	}
	user.ConfirmationSecret = secret

	code, err := s.codes.Generate(secret)
	if err != nil {
		return nil, fmt.Errorf("確認コードの生成に失敗しました: %w", err)
	}

	if err := s.mailer.SendConfirmationCode(ctx, email, code); err != nil {
		return nil, model.NewMailDeliveryError()
	}

	return user, nil
}

// findOrCreate は既存ユーザーの照合または新規作成を行う。
func (s *Service) findOrCreate(ctx context.Context, username, email string) (*model.User, error) {
	byUsername, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if byUsername != nil {
		if byUsername.Email != email {
			return nil, model.NewConflictError()
		}
		return byUsername, nil
	}

	byEmail, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if byEmail != nil {
		return nil, model.NewConflictError()
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 同時サインアップの競合はDBの一意性制約で検出される
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	return user, nil
}

// IssueToken は確認コードを検証してアクセストークンを発行する。
// 未知のusernameはUserNotFound（404）、コード不一致はAuthFailed（400）を返す。
func (s *Service) IssueToken(ctx context.Context, username, code string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}
	if code == "" {
		return "", model.NewValidationError("confirmation_codeは必須です")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewUserNotFoundError(username)
	}

	if user.ConfirmationSecret == "" || !s.codes.Verify(code, user.ConfirmationSecret) {
		return "", model.NewAuthFailedError()
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	return token, nil
}
