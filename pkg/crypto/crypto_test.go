package crypto

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("expected hash to differ from plaintext")
	}

	if !VerifyPassword(hash, "s3cret-password") {
		t.Fatal("expected matching password to verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("expected mismatched password to fail verification")
	}
}

func TestGenerateResetCode(t *testing.T) {
	code, err := GenerateResetCode()
	if err != nil {
		t.Fatalf("generate reset code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected six digit code, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}
