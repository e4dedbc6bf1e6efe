package blockmode

// ecbCipher encrypts every block independently. Equal plaintext blocks give
// equal ciphertext blocks, so ECB leaks structure (see imagekit for a visual
// demonstration). It is kept for teaching and interop only.
type ecbCipher struct {
	engine
}

func (c *ecbCipher) Encrypt(plaintext []byte) ([]byte, error) {
	c.begin("encrypt", len(plaintext))

	out := Pad(plaintext)
	for i := 0; i < len(out); i += BlockSize {
		c.block.Encrypt(out[i:i+BlockSize], out[i:i+BlockSize])
	}
	return out, nil
}

func (c *ecbCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.begin("decrypt", len(ciphertext))

	if err := c.checkBlocks(ciphertext); err != nil {
		return nil, c.fail("decrypt", err)
	}

	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += BlockSize {
		c.block.Decrypt(out[i:i+BlockSize], ciphertext[i:i+BlockSize])
	}

	plaintext, err := unpad(out)
	if err != nil {
		return nil, c.fail("decrypt", err)
	}
	return plaintext, nil
}
