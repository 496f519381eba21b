package mail

import (
	"context"
	"testing"
)

// SMTPMailerはMailerインターフェースを満たすことを検証
func TestSMTPMailer_ImplementsInterface(t *testing.T) {
	var _ Mailer = (*SMTPMailer)(nil)
}

// NewSMTPMailerが正しく初期化されることを検証
func TestNewSMTPMailer_Initializes(t *testing.T) {
	mailer := NewSMTPMailer("localhost:25", "", "", "admin@example.com")
	if mailer == nil {
		t.Fatal("expected non-nil mailer")
	}
}

// キャンセル済みコンテキストでは送信を試みずエラーを返すことを検証
func TestSMTPMailer_SendConfirmationCode_CanceledContext(t *testing.T) {
	mailer := NewSMTPMailer("localhost:25", "", "", "admin@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mailer.SendConfirmationCode(ctx, "alice@example.com", "123456")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

// 認証ありの場合にアドレス形式が不正だとエラーになることを検証
func TestSMTPMailer_SendConfirmationCode_InvalidAddr(t *testing.T) {
	mailer := NewSMTPMailer("not-a-host-port", "user", "pass", "admin@example.com")

	err := mailer.SendConfirmationCode(context.Background(), "alice@example.com", "123456")
	if err == nil {
		t.Fatal("expected error for invalid SMTP address")
	}
}
