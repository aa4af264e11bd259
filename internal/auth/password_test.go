package auth

import (
	"bytes"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "short password is accepted",
			password: "pw123",
			wantErr:  nil,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  ErrPasswordRequired,
		},
		{
			name:     "password too long",
			password: strings.Repeat("a", 73),
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "password at maximum length",
			password: strings.Repeat("a", 72),
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, 4)
			if err != tt.wantErr {
				t.Errorf("HashPassword() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil {
				if hash == "" {
					t.Error("HashPassword() returned empty hash for valid password")
				}
				if hash == tt.password {
					t.Error("HashPassword() returned the plaintext")
				}
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	password := "pw123"
	hash, err := HashPassword(password, 4)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := CheckPassword(password, hash); err != nil {
		t.Errorf("CheckPassword() with correct password = %v, want nil", err)
	}
	if err := CheckPassword("wrong", hash); err != ErrInvalidPassword {
		t.Errorf("CheckPassword() with wrong password = %v, want ErrInvalidPassword", err)
	}
	if err := CheckPassword(password, "not-a-bcrypt-hash"); err == nil || err == ErrInvalidPassword {
		t.Errorf("CheckPassword() with malformed hash = %v, want a hash error", err)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, _ := HashPassword("same", 4)
	b, _ := HashPassword("same", 4)
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(secret))
	}
}

func TestDeriveKey(t *testing.T) {
	secret, _ := GenerateSessionSecret()
	key := DeriveKey(secret)
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}

	short := DeriveKey("not hex")
	if len(short) != 32 {
		t.Errorf("expected hashed 32-byte key, got %d", len(short))
	}
	if !bytes.Equal(short, DeriveKey("not hex")) {
		t.Error("DeriveKey should be deterministic")
	}
}
