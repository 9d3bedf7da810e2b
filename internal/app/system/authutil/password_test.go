package authutil

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "correct-horse-battery", nil},
		{"minimum length", "8chars!!", nil},
		{"too short", "short", ErrPasswordTooShort},
		{"empty", "", ErrPasswordTooShort},
		{"too long", strings.Repeat("a", 129), ErrPasswordTooLong},
		{"common", "password", ErrPasswordCommon},
		{"common uppercase", "PASSWORD", ErrPasswordCommon},
		{"common numeric", "12345678", ErrPasswordCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if err != tt.wantErr {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	// Bcrypt at cost 12 is slow; one round trip is enough.
	password := "correct-horse-battery"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == password {
		t.Error("hash should not equal plaintext")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword() should accept the original password")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("CheckPassword() should reject a wrong password")
	}
	if CheckPassword(password, "not-a-bcrypt-hash") {
		t.Error("CheckPassword() should reject a malformed hash")
	}
}
