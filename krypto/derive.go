package krypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	memory      = 4096
	iterations  = 3
	parallelism = 6
	saltLength  = 16
)

var ErrShortSalt = errors.New("salt must be at least 16 bytes")

// NewSalt returns a fresh random salt for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a cipher key with Argon2id.
// The same passphrase and salt always yield the same key, so the salt has to
// be stored next to the ciphertext (it is not secret).
//
// Parameters:
//
//	passphrase: The user supplied secret.
//	salt: At least 16 random bytes, see NewSalt.
//	size: Key length in bytes, one of 16, 24 or 32.
func DeriveKey(passphrase string, salt []byte, size int) (*Key, error) {
	if !ValidKeySize(size) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, size)
	}
	if len(salt) < saltLength {
		return nil, ErrShortSalt
	}

	b := argon2.IDKey([]byte(passphrase), salt, iterations, memory, parallelism, uint32(size)) //nolint:gosec // size validated above
	return &Key{ID: uuid.Nil, Bytes: b}, nil
}

// DecodeSalt parses a base64 salt as printed by EncodeSalt.
func DecodeSalt(s string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	if len(salt) < saltLength {
		return nil, ErrShortSalt
	}
	return salt, nil
}

// EncodeSalt renders a salt as standard base64.
func EncodeSalt(salt []byte) string {
	return base64.StdEncoding.EncodeToString(salt)
}
