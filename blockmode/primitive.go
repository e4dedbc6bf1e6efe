package blockmode

import (
	"crypto/aes"
)

// BlockSize is the only block size the engine supports.
const BlockSize = 16

// Primitive is a keyed single-block transform. crypto/cipher.Block satisfies it.
// Implementations must not retain dst or src.
type Primitive interface {
	BlockSize() int
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

// PrimitiveFunc builds a Primitive from a validated key.
type PrimitiveFunc func(key []byte) (Primitive, error)

// AES is the default primitive; the key length picks AES-128, -192 or -256.
func AES(key []byte) (Primitive, error) {
	return aes.NewCipher(key)
}

// ValidKeyLength reports whether n is 16, 24 or 32.
func ValidKeyLength(n int) bool {
	switch n {
	case 16, 24, 32:
		return true
	default:
		return false
	}
}
