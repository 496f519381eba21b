// Package mail は確認コード通知メールの送信を提供する。
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
)

// registerSubject は確認コードメールの件名。
const registerSubject = "Register code"

// Mailer はメール送信機能のインターフェースを定義する。
type Mailer interface {
	// SendConfirmationCode は確認コードを指定アドレスへ送信する。
	// 本文はコード文字列そのものであり、余計な定型文は付けない。
	SendConfirmationCode(ctx context.Context, to, code string) error
}

// SMTPMailer はnet/smtpを使用したMailerの実装。
type SMTPMailer struct {
	addr     string // host:port
	username string
	password string
	from     string
}

// NewSMTPMailer はSMTPMailerを生成する。
// usernameが空の場合は認証なしで送信する（ローカルのリレー用）。
func NewSMTPMailer(addr, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		addr:     addr,
		username: username,
		password: password,
		from:     from,
	}
}

// SendConfirmationCode は確認コードを指定アドレスへ送信する。
func (m *SMTPMailer) SendConfirmationCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	msg := []byte("To: " + to + "\r\n" +
		"From: " + m.from + "\r\n" +
		"Subject: " + registerSubject + "\r\n\r\n" +
		code + "\r\n")

	var auth smtp.Auth
	if m.username != "" {
		host, _, err := net.SplitHostPort(m.addr)
		if err != nil {
			return fmt.Errorf("invalid SMTP address %q: %w", m.addr, err)
		}
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}

	if err := smtp.SendMail(m.addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", m.addr, err)
	}

	return nil
}

// compile-time interface check
var _ Mailer = (*SMTPMailer)(nil)
