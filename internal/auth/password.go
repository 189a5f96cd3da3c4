package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword compares password against a bcrypt hash. A value that is not
// a bcrypt hash is compared as a plain secret in constant time.
func CheckPassword(password, hashOrPlain string) bool {
	if hashOrPlain == "" {
		return false
	}
	if !isBcrypt(hashOrPlain) {
		return subtle.ConstantTimeCompare([]byte(password), []byte(hashOrPlain)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hashOrPlain), []byte(password)) == nil
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
