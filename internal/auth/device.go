package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// NewDeviceSecret returns a random pairing secret for a child's device and
// its bcrypt hash. Only the hash is stored.
func NewDeviceSecret() (secret, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate device secret: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash device secret: %w", err)
	}
	return secret, string(h), nil
}

// CheckDeviceSecret reports whether secret matches the stored hash.
func CheckDeviceSecret(hash, secret string) bool {
	if hash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
