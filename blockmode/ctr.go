package blockmode

import "crypto/subtle"

// ctrCipher XORs the data with E(IV+i), the IV read as a big-endian 128-bit
// counter that wraps modulo 2^128. No padding; the last block may be partial.
//
// Reusing an IV under the same key reuses the keystream and leaks the XOR of
// the two plaintexts. Encrypt always draws a fresh IV.
type ctrCipher struct {
	engine
}

func (c *ctrCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.encryptWithFreshIV(plaintext, c.EncryptWithIV)
}

func (c *ctrCipher) EncryptWithIV(iv, plaintext []byte) ([]byte, error) {
	c.begin("encrypt", len(plaintext))
	if err := c.checkIV(iv); err != nil {
		return nil, c.fail("encrypt", err)
	}
	c.traceIV("encrypt", iv)

	out := make([]byte, BlockSize+len(plaintext))
	copy(out, iv)
	c.xorKeyStream(iv, out[BlockSize:], plaintext)
	return out, nil
}

func (c *ctrCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.begin("decrypt", len(ciphertext))

	iv, body, err := c.splitIV(ciphertext)
	if err != nil {
		return nil, c.fail("decrypt", err)
	}
	c.traceIV("decrypt", iv)

	out := make([]byte, len(body))
	c.xorKeyStream(iv, out, body)
	return out, nil
}

func (c *ctrCipher) xorKeyStream(iv, dst, src []byte) {
	counter := make([]byte, BlockSize)
	copy(counter, iv)
	stream := make([]byte, BlockSize)

	for i := 0; i < len(src); i += BlockSize {
		end := min(i+BlockSize, len(src))
		c.block.Encrypt(stream, counter)
		subtle.XORBytes(dst[i:end], src[i:end], stream)
		incrementCounter(counter)
	}
}

// incrementCounter adds one to a big-endian counter in place.
func incrementCounter(counter []byte) {
	for i := len(counter) - 1; i >= 0; i-- {
		counter[i]++
		if counter[i] != 0 {
			return
		}
	}
}
