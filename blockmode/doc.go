/*
Package blockmode implements the classic block cipher modes of operation (ECB,
CBC, CFB, OFB and CTR) and PKCS#7 padding on top of a 16-byte block primitive,
AES by default.

# Usage

	c, err := blockmode.New(blockmode.CBC, key)
	if err != nil {
		return err
	}
	ct, err := c.Encrypt([]byte("attack at dawn"))
	pt, err := c.Decrypt(ct)

Every Encrypt call of CBC, CFB, OFB and CTR draws a fresh IV from the
configured source and returns IV || ciphertext. Decrypt takes the IV back off
the front. A Cipher keeps no per-call state and may be shared by goroutines.

# Layouts

	ECB  C1..Cn                   n*16 bytes, padded
	CBC  IV || C1..Cn             padded
	CFB  IV || C                  len(C) == len(P), 64 or 128 bit segments
	OFB  IV || C1..Cn             padded
	CTR  IV || C                  len(C) == len(P)

# Caveats

The package provides confidentiality only. Ciphertexts are not authenticated,
so an attacker can flip bits (CFB, OFB, CTR) or blocks (ECB, CBC) without
detection, and padding errors are reported distinctly. Use crypto/cipher's
GCM when integrity matters.

ECB maps equal plaintext blocks to equal ciphertext blocks. Patterns in the
input stay visible in the output; the imagekit package renders this.

CTR and OFB turn into a reused keystream if an IV repeats under one key. Encrypt
never repeats IVs as long as the source is a CSPRNG; EncryptWithIV leaves that
to the caller.

# Configuration

The package level helpers read their settings from the environment:

	CIPHERKIT_BLOCKMODE_MODE=CBC
	CIPHERKIT_BLOCKMODE_KEY=<hex or base64 key>
	CIPHERKIT_BLOCKMODE_SEGMENT_SIZE=128
	CIPHERKIT_BLOCKMODE_DEBUG=false
	CIPHERKIT_BLOCKMODE_LOG_LEVEL=debug

Use WithPrefix to read a different prefix.
*/
package blockmode
