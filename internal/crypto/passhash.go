// Package crypto implements password hashing for the development backend.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (low end of the recommended range; the dev backend
// hashes every post and comment password).
const (
	argonTime    uint32 = 2
	argonMemory  uint32 = 19 * 1024 // 19 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against expected Argon2id hash and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// Secret is a salted password hash.
type Secret struct {
	Salt []byte
	Hash []byte
}

// NewSecret hashes password with a fresh salt.
func NewSecret(password string) (Secret, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return Secret{}, err
	}
	return Secret{Salt: salt, Hash: HashPassword([]byte(password), salt)}, nil
}

// Matches reports whether password hashes to s. An empty Secret never matches.
func (s Secret) Matches(password string) bool {
	if len(s.Hash) == 0 {
		return false
	}
	return VerifyPassword([]byte(password), s.Salt, s.Hash)
}
