package utils

import (
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
)

const minPasswordLength = 8

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks the shape of an email/password pair before any
// datastore access.
func ValidateCredentials(email, password string) error {
	var fields []errs.FieldError
	if email == "" {
		fields = append(fields, errs.FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields = append(fields, errs.FieldError{Field: "email", Message: "email is not a valid address"})
	}
	if password == "" {
		fields = append(fields, errs.FieldError{Field: "password", Message: "password is required"})
	} else if len(password) < minPasswordLength {
		fields = append(fields, errs.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if len(fields) > 0 {
		return &errs.ValidationError{Fields: fields}
	}
	return nil
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a bcrypt hash against a plaintext candidate.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
