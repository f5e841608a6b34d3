package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2-SHA512 parameters. The salt is random per user and stored next
// to the derived key as "hex(salt):hex(key)".
const (
	saltBytes  = 16
	iterations = 1000
	keyBytes   = 64
)

func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, keyBytes, sha512.New)
	return saltHex + ":" + hex.EncodeToString(key), nil
}

// CheckPasswordHash recomputes the derivation with the stored salt and
// compares in constant time. A malformed stored hash verifies false.
func CheckPasswordHash(password, stored string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) != keyBytes {
		return false
	}
	key := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, keyBytes, sha512.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}
