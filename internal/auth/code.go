package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// codeIssuerName はシークレット生成時に記録される発行者名。
const codeIssuerName = "rateman"

// CodeIssuer は確認コードの発行と検証を行う。
//
// コードはユーザーごとのシークレットから導出される時間窓付きのワンタイムコードで、
// シークレット自体は外部に出さない。再サインアップでシークレットを再生成すると、
// 旧シークレット由来のコードは以後すべて検証に失敗する（コードの失効）。
type CodeIssuer struct {
	period uint
}

// NewCodeIssuer はCodeIssuerを生成する。
// periodはコードの有効時間窓。直前の1窓分も許容するため、
// 実際の有効期間は最大でperiodの2倍になる。
func NewCodeIssuer(period time.Duration) *CodeIssuer {
	return &CodeIssuer{period: uint(period.Seconds())}
}

// validateOpts は生成と検証で共有するコードパラメータ。
func (c *CodeIssuer) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    c.period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// NewSecret はユーザー専用の新しいシークレットを生成する。
func (c *CodeIssuer) NewSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      codeIssuerName,
		AccountName: accountName,
		Period:      c.period,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation secret: %w", err)
	}
	return key.Secret(), nil
}

// Generate は現在時刻に対応する確認コードを導出する。
func (c *CodeIssuer) Generate(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, time.Now(), c.validateOpts())
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return code, nil
}

// Verify はコードがシークレットと現在の時間窓に対して有効か検証する。
// 不正な形式のコードは単に無効として扱う。
func (c *CodeIssuer) Verify(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), c.validateOpts())
	if err != nil {
		return false
	}
	return ok
}
