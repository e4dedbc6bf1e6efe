package blockmode

import "crypto/subtle"

// ofbCipher XORs the padded plaintext with O[i] = E(O[i-1]), O[-1] = IV. The
// keystream feeds back into itself and is independent of the data.
type ofbCipher struct {
	engine
}

func (c *ofbCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.encryptWithFreshIV(plaintext, c.EncryptWithIV)
}

func (c *ofbCipher) EncryptWithIV(iv, plaintext []byte) ([]byte, error) {
	c.begin("encrypt", len(plaintext))
	if err := c.checkIV(iv); err != nil {
		return nil, c.fail("encrypt", err)
	}
	c.traceIV("encrypt", iv)

	padded := Pad(plaintext)
	out := make([]byte, BlockSize+len(padded))
	copy(out, iv)
	c.keystream(iv, out[BlockSize:], padded)
	return out, nil
}

func (c *ofbCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.begin("decrypt", len(ciphertext))

	iv, body, err := c.splitIV(ciphertext)
	if err != nil {
		return nil, c.fail("decrypt", err)
	}
	if err := c.checkBlocks(body); err != nil {
		return nil, c.fail("decrypt", err)
	}
	c.traceIV("decrypt", iv)

	out := make([]byte, len(body))
	c.keystream(iv, out, body)

	plaintext, err := unpad(out)
	if err != nil {
		return nil, c.fail("decrypt", err)
	}
	return plaintext, nil
}

func (c *ofbCipher) keystream(iv, dst, src []byte) {
	state := make([]byte, BlockSize)
	copy(state, iv)

	for i := 0; i < len(src); i += BlockSize {
		end := min(i+BlockSize, len(src))
		c.block.Encrypt(state, state)
		subtle.XORBytes(dst[i:end], src[i:end], state)
	}
}
