// Package krypto manages the key material handed to the block-mode engine:
// random key generation, parsing user supplied keys and passphrase based
// derivation.
//
// # Random Keys
//
//	key, err := krypto.GenerateKey(krypto.KeySize256)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(key.ID, key.Hex())
//
// # Parsing Keys
//
// Keys are accepted as hex (32, 48 or 64 characters) or standard base64:
//
//	key, err := krypto.ParseKey("000102030405060708090a0b0c0d0e0f")
//
// # Passphrases
//
// DeriveKey runs Argon2id over a passphrase and a random salt. Keep the salt
// with the ciphertext; it is required to derive the same key again.
//
//	salt, _ := krypto.NewSalt()
//	key, err := krypto.DeriveKey("correct horse battery staple", salt, krypto.KeySize128)
//
// Key.String and Key.Fingerprint never expose the key bytes and are safe to log.
package krypto
