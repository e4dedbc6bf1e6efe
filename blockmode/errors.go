package blockmode

import (
	"errors"
	"fmt"
)

// Standard errors for the blockmode package
var (
	// ErrInvalidKeyLength is returned at construction for keys that are not 16, 24 or 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrConfig covers unknown modes, unsupported CFB segment sizes and primitives
	// with the wrong block size.
	ErrConfig = errors.New("invalid configuration")

	// ErrLength means the input is not aligned the way the mode requires, or is
	// too short to hold an IV.
	ErrLength = errors.New("invalid input length")

	// ErrPadding means the last plaintext byte is not a valid PKCS#7 length.
	// Usually the ciphertext was corrupted or decrypted with the wrong key.
	ErrPadding = errors.New("invalid padding")

	// ErrRandom wraps failures of the IV source.
	ErrRandom = errors.New("cannot generate IV")

	// ErrNotInitialized is returned by the package level helpers before Init.
	ErrNotInitialized = errors.New("service not initialized")
)

// Error describes a failed operation. It unwraps to one of the sentinel errors
// above, so callers can use errors.Is.
type Error struct {
	Op   string // "new", "encrypt", "decrypt" or "unpad"
	Mode Mode
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Mode == 0 {
		return fmt.Sprintf("blockmode: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blockmode: %s %s: %v", e.Mode, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}
