package blockmode

import "crypto/subtle"

// cfbCipher is s-bit cipher feedback with s = 8*segment (64 or 128).
//
// A 16-byte shift register starts as the IV. Each segment is XORed with the
// leading bytes of E(register); the register then drops its first segment
// bytes and appends the ciphertext segment. With 16-byte segments this means
// the register becomes the ciphertext block. The register is always fed with
// ciphertext, never with keystream (that is OFB).
type cfbCipher struct {
	engine
	segment int
}

func (c *cfbCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.encryptWithFreshIV(plaintext, c.EncryptWithIV)
}

func (c *cfbCipher) EncryptWithIV(iv, plaintext []byte) ([]byte, error) {
	c.begin("encrypt", len(plaintext))
	if err := c.checkIV(iv); err != nil {
		return nil, c.fail("encrypt", err)
	}
	c.traceIV("encrypt", iv)

	out := make([]byte, BlockSize+len(plaintext))
	copy(out, iv)
	c.xorSegments(iv, out[BlockSize:], plaintext, out[BlockSize:])
	return out, nil
}

func (c *cfbCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.begin("decrypt", len(ciphertext))

	iv, body, err := c.splitIV(ciphertext)
	if err != nil {
		return nil, c.fail("decrypt", err)
	}
	c.traceIV("decrypt", iv)

	out := make([]byte, len(body))
	c.xorSegments(iv, out, body, body)
	return out, nil
}

// xorSegments writes src xor keystream into dst segment by segment. feedback
// is the ciphertext stream (dst when encrypting, src when decrypting); each
// segment of it is shifted into the register after use.
func (c *cfbCipher) xorSegments(iv, dst, src, feedback []byte) {
	register := make([]byte, BlockSize)
	copy(register, iv)
	stream := make([]byte, BlockSize)

	for i := 0; i < len(src); i += c.segment {
		end := min(i+c.segment, len(src))
		c.block.Encrypt(stream, register)
		subtle.XORBytes(dst[i:end], src[i:end], stream)

		n := copy(register, register[c.segment:])
		copy(register[n:], feedback[i:end])
	}
}
