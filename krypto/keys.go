package krypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Key sizes accepted by the block primitive (AES-128, AES-192, AES-256).
const (
	KeySize128 = 16
	KeySize192 = 24
	KeySize256 = 32
)

var (
	ErrInvalidKeySize = errors.New("invalid key size: must be 16, 24, or 32 bytes")
	ErrInvalidKeyText = errors.New("key is neither hex nor base64")
)

// Key is raw symmetric key material plus an identifier for logging.
// Bytes must be treated as read-only once the key is handed to a cipher.
type Key struct {
	ID    uuid.UUID
	Bytes []byte
}

// ValidKeySize reports whether n is an accepted key length in bytes.
func ValidKeySize(n int) bool {
	return n == KeySize128 || n == KeySize192 || n == KeySize256
}

// GenerateKey creates a new random key of the given size using crypto/rand.
func GenerateKey(size int) (*Key, error) {
	if !ValidKeySize(size) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, size)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	return &Key{ID: uuid.New(), Bytes: b}, nil
}

// ParseKey decodes a key given as hex (32, 48 or 64 characters) or standard
// base64. Surrounding whitespace is ignored.
func ParseKey(s string) (*Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKeyText)
	}

	var b []byte
	if decoded, err := hex.DecodeString(s); err == nil {
		b = decoded
	} else if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		b = decoded
	} else {
		return nil, ErrInvalidKeyText
	}

	if !ValidKeySize(len(b)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(b))
	}

	return &Key{ID: uuid.Nil, Bytes: b}, nil
}

// Size returns the key length in bytes.
func (k *Key) Size() int {
	return len(k.Bytes)
}

// Bits returns the key length in bits (128, 192 or 256).
func (k *Key) Bits() int {
	return len(k.Bytes) * 8
}

// Hex returns the key as lowercase hex.
func (k *Key) Hex() string {
	return hex.EncodeToString(k.Bytes)
}

// Base64 returns the key in standard base64 for storage/transmission.
func (k *Key) Base64() string {
	return base64.StdEncoding.EncodeToString(k.Bytes)
}

// Fingerprint returns a short SHA-256 based identifier that can be logged
// without revealing the key.
func (k *Key) Fingerprint() string {
	sum := sha256.Sum256(k.Bytes)
	return hex.EncodeToString(sum[:8])
}

// String never prints key material.
func (k *Key) String() string {
	if k.ID == uuid.Nil {
		return fmt.Sprintf("key(%d-bit, %s)", k.Bits(), k.Fingerprint())
	}
	return fmt.Sprintf("key(%s, %d-bit, %s)", k.ID, k.Bits(), k.Fingerprint())
}
