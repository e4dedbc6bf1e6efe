package krypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gobeaver/cipherkit/krypto"
)

func TestDeriveKey(t *testing.T) {
	salt, err := krypto.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}

	tests := []struct {
		name       string
		passphrase string
		size       int
		salt       []byte
		wantErr    error
	}{
		{name: "128-bit", passphrase: "secure_password_123", size: 16, salt: salt},
		{name: "256-bit", passphrase: "secure_password_123", size: 32, salt: salt},
		{name: "empty passphrase", passphrase: "", size: 24, salt: salt},
		{name: "bad size", passphrase: "x", size: 20, salt: salt, wantErr: krypto.ErrInvalidKeySize},
		{name: "short salt", passphrase: "x", size: 16, salt: []byte("short"), wantErr: krypto.ErrShortSalt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := krypto.DeriveKey(tt.passphrase, tt.salt, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DeriveKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}
			if key.Size() != tt.size {
				t.Errorf("Size() = %d, want %d", key.Size(), tt.size)
			}

			again, err := krypto.DeriveKey(tt.passphrase, tt.salt, tt.size)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(key.Bytes, again.Bytes) {
				t.Error("DeriveKey() is not deterministic for the same passphrase and salt")
			}
		})
	}
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	saltA, _ := krypto.NewSalt()
	saltB, _ := krypto.NewSalt()

	a, err := krypto.DeriveKey("passphrase", saltA, 16)
	if err != nil {
		t.Fatal(err)
	}
	b, err := krypto.DeriveKey("passphrase", saltB, 16)
	if err != nil {
		t.Fatal(err)
	}
	c, err := krypto.DeriveKey("other passphrase", saltA, 16)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(a.Bytes, b.Bytes) {
		t.Error("different salts produced the same key")
	}
	if bytes.Equal(a.Bytes, c.Bytes) {
		t.Error("different passphrases produced the same key")
	}
}

func TestSaltEncoding(t *testing.T) {
	salt, err := krypto.NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := krypto.DecodeSalt(krypto.EncodeSalt(salt))
	if err != nil {
		t.Fatalf("DecodeSalt() error = %v", err)
	}
	if !bytes.Equal(decoded, salt) {
		t.Errorf("DecodeSalt() = %x, want %x", decoded, salt)
	}

	if _, err := krypto.DecodeSalt("not base64!"); err == nil {
		t.Error("DecodeSalt() should reject invalid base64")
	}
	if _, err := krypto.DecodeSalt(krypto.EncodeSalt([]byte("tiny"))); !errors.Is(err, krypto.ErrShortSalt) {
		t.Errorf("DecodeSalt() error = %v, want ErrShortSalt", err)
	}
}
