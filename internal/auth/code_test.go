package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

// 生成したコードが同じシークレットで検証に通ることを検証
func TestCodeIssuer_GenerateAndVerify(t *testing.T) {
	issuer := NewCodeIssuer(15 * time.Minute)

	secret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}
	if secret == "" {
		t.Fatal("expected non-empty secret")
	}

	code, err := issuer.Generate(secret)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code length = %d, want 6", len(code))
	}

	if !issuer.Verify(code, secret) {
		t.Error("expected freshly generated code to verify")
	}
}

// 別のシークレットで導出したコードは検証に失敗することを検証
func TestCodeIssuer_Verify_WrongSecret(t *testing.T) {
	issuer := NewCodeIssuer(15 * time.Minute)

	aliceSecret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}
	bobSecret, err := issuer.NewSecret("bob")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}

	code, err := issuer.Generate(aliceSecret)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if issuer.Verify(code, bobSecret) {
		t.Error("expected code derived from another secret to fail verification")
	}
}

// 時間窓を過ぎたコードは検証に失敗することを検証
func TestCodeIssuer_Verify_ExpiredCode(t *testing.T) {
	issuer := NewCodeIssuer(30 * time.Second)

	secret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}

	// 3窓前の時刻で導出したコードはSkew=1でも窓の外
	past := time.Now().Add(-3 * 30 * time.Second)
	expiredCode, err := totp.GenerateCodeCustom(secret, past, issuer.validateOpts())
	if err != nil {
		t.Fatalf("GenerateCodeCustom failed: %v", err)
	}

	if issuer.Verify(expiredCode, secret) {
		t.Error("expected code outside the time window to fail verification")
	}
}

// 直前の1窓分のコードはSkew=1で許容されることを検証
func TestCodeIssuer_Verify_PreviousWindowAccepted(t *testing.T) {
	issuer := NewCodeIssuer(30 * time.Second)

	secret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}

	previous := time.Now().Add(-30 * time.Second)
	code, err := totp.GenerateCodeCustom(secret, previous, issuer.validateOpts())
	if err != nil {
		t.Fatalf("GenerateCodeCustom failed: %v", err)
	}

	if !issuer.Verify(code, secret) {
		t.Error("expected previous-window code to verify with skew 1")
	}
}

// 不正な形式のコードは単に無効扱いになることを検証
func TestCodeIssuer_Verify_MalformedCode(t *testing.T) {
	issuer := NewCodeIssuer(15 * time.Minute)

	secret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}

	for _, code := range []string{"", "abc", "12345", "1234567", "!@#$%^"} {
		if issuer.Verify(code, secret) {
			t.Errorf("Verify(%q) = true, want false", code)
		}
	}
}

// シークレット再生成で旧シークレット由来のコードが失効することを検証
func TestCodeIssuer_SecretRotation_InvalidatesOldCodes(t *testing.T) {
	issuer := NewCodeIssuer(15 * time.Minute)

	oldSecret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}
	oldCode, err := issuer.Generate(oldSecret)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	newSecret, err := issuer.NewSecret("alice")
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}
	if newSecret == oldSecret {
		t.Fatal("expected regenerated secret to differ")
	}

	if issuer.Verify(oldCode, newSecret) {
		t.Error("expected code from old secret to fail against new secret")
	}
}
