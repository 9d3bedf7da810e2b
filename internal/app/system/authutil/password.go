// internal/app/system/authutil/password.go
package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password validation constants
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	BcryptCost        = 12
)

// Password validation errors
var (
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters.")
	ErrPasswordTooLong  = errors.New("Password must be less than 128 characters.")
	ErrPasswordCommon   = errors.New("This password is too common. Please choose a different one.")
)

// commonPasswords is a list of very common passwords that are blocked.
var commonPasswords = map[string]bool{
	"12345678":    true,
	"123456789":   true,
	"1234567890":  true,
	"password":    true,
	"password1":   true,
	"qwerty123":   true,
	"qwertyui":    true,
	"abcd1234":    true,
	"11111111":    true,
	"00000000":    true,
	"iloveyou":    true,
	"letmein1":    true,
	"welcome1":    true,
	"sunshine":    true,
	"football":    true,
	"baseball":    true,
	"superman":    true,
	"princess":    true,
	"universitet": true,
	"student123":  true,
}

// PasswordRules returns a human-readable description of the password rules.
// This can be displayed on registration and password change forms.
func PasswordRules() string {
	return "Password must be at least 8 characters and cannot be a common password like \"12345678\" or \"password\"."
}

// ValidatePassword checks if a password meets the requirements.
// Returns nil if valid, or an error describing the issue.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	// Check against common passwords (case-insensitive)
	if commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}

	return nil
}

// HashPassword hashes a password using bcrypt.
// The password should be validated with ValidatePassword first.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plain-text password with a bcrypt hash.
// Returns true if the password matches, false otherwise.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
