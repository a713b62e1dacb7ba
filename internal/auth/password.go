// Package auth handles staff passwords and API tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. The stored form is hex(salt):hex(key), which is what
// the legacy credentials file holds.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16
)

// ErrBadCredentials is returned for an unknown user or a wrong password.
var ErrBadCredentials = errors.New("invalid id or password")

// HashPassword derives a salted scrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches a stored hash.
// Malformed hashes never match.
func VerifyPassword(stored, password string) bool {
	saltHex, keyHex, ok := strings.Cut(strings.TrimSpace(stored), ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) == 0 {
		return false
	}
	got, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
