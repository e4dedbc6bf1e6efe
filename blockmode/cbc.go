package blockmode

import "crypto/subtle"

// cbcCipher chains blocks: C[i] = E(P[i] xor C[i-1]), C[-1] = IV.
type cbcCipher struct {
	engine
}

func (c *cbcCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return c.encryptWithFreshIV(plaintext, c.EncryptWithIV)
}

func (c *cbcCipher) EncryptWithIV(iv, plaintext []byte) ([]byte, error) {
	c.begin("encrypt", len(plaintext))
	if err := c.checkIV(iv); err != nil {
		return nil, c.fail("encrypt", err)
	}
	c.traceIV("encrypt", iv)

	padded := Pad(plaintext)
	out := make([]byte, BlockSize+len(padded))
	copy(out, iv)

	prev := out[:BlockSize]
	for i := 0; i < len(padded); i += BlockSize {
		dst := out[BlockSize+i : BlockSize+i+BlockSize]
		subtle.XORBytes(dst, padded[i:i+BlockSize], prev)
		c.block.Encrypt(dst, dst)
		prev = dst
	}
	return out, nil
}

func (c *cbcCipher) Decrypt(ciphertext []byte) ([]byte, error) {
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
	prev := iv
	for i := 0; i < len(body); i += BlockSize {
		block := body[i : i+BlockSize]
		dst := out[i : i+BlockSize]
		c.block.Decrypt(dst, block)
		subtle.XORBytes(dst, dst, prev)
		prev = block
	}

	plaintext, err := unpad(out)
	if err != nil {
		return nil, c.fail("decrypt", err)
	}
	return plaintext, nil
}
