// Command cipherkit encrypts and decrypts files and images with the block
// cipher modes in package blockmode, generates keys, and moves encrypted files
// in and out of a filekit store.
//
// Usage:
//
//	cipherkit -op keygen -bits 256
//	cipherkit -op encrypt -mode CBC -key <hex> -in notes.txt
//	cipherkit -op decrypt -mode CBC -key <hex> -in cipher_notes.txt
//	cipherkit -op encrypt -mode ECB -key random -in tux.png
//	cipherkit -op visualize -mode ECB -key random -in tux.png
//	cipherkit -op put -key <hex> -in report.pdf -path reports/q3.pdf
//	cipherkit -op get -key <hex> -path reports/q3.pdf -out q3.pdf
//
// Unset flags fall back to CIPHERKIT_BLOCKMODE_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobeaver/cipherkit/blockmode"
	"github.com/gobeaver/cipherkit/config"
	"github.com/gobeaver/cipherkit/filekit"
	_ "github.com/gobeaver/cipherkit/filekit/driver/database"
	_ "github.com/gobeaver/cipherkit/filekit/driver/local"
	_ "github.com/gobeaver/cipherkit/filekit/driver/redis"
	_ "github.com/gobeaver/cipherkit/filekit/driver/s3"
	"github.com/gobeaver/cipherkit/imagekit"
	"github.com/gobeaver/cipherkit/krypto"
	"github.com/google/uuid"
)

var (
	errNoKey   = errors.New("no key: set -key, -passphrase or CIPHERKIT_BLOCKMODE_KEY")
	errNoInput = errors.New("missing -in")
	errNoSalt  = errors.New("-passphrase needs -salt to decrypt")
)

// envDefaults are the environment fallbacks for the cipher flags.
type envDefaults struct {
	Mode        string `env:"BLOCKMODE_MODE,default:CBC"`
	Key         string `env:"BLOCKMODE_KEY"`
	SegmentSize int    `env:"BLOCKMODE_SEGMENT_SIZE,default:128"`
	Debug       bool   `env:"BLOCKMODE_DEBUG,default:false"`
	LogLevel    string `env:"BLOCKMODE_LOG_LEVEL,default:debug"`
}

type options struct {
	op         string
	mode       string
	key        string
	passphrase string
	salt       string
	bits       int
	segment    int
	in         string
	out        string
	path       string
	image      bool
	plain      bool
	debug      bool
	logLevel   string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Printf("cipherkit: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var env envDefaults
	if err := config.Load(&env); err != nil {
		return fmt.Errorf("cannot load environment: %w", err)
	}

	var o options
	fs := flag.NewFlagSet("cipherkit", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&o.op, "op", "encrypt", "Operation: encrypt, decrypt, keygen, visualize, put or get")
	fs.StringVar(&o.mode, "mode", env.Mode, "Cipher mode: ECB, CBC, CFB, OFB or CTR")
	fs.StringVar(&o.key, "key", env.Key, "Key as hex or base64, or \"random\"")
	fs.StringVar(&o.passphrase, "passphrase", "", "Derive the key from a passphrase instead of -key")
	fs.StringVar(&o.salt, "salt", "", "Base64 salt for -passphrase (generated on encrypt when empty)")
	fs.IntVar(&o.bits, "bits", 128, "Key size in bits for random and derived keys: 128, 192 or 256")
	fs.IntVar(&o.segment, "segment", env.SegmentSize, "CFB segment size in bits")
	fs.StringVar(&o.in, "in", "", "Input file")
	fs.StringVar(&o.out, "out", "", "Output file (derived from -in when empty)")
	fs.StringVar(&o.path, "path", "", "Storage path for put and get")
	fs.BoolVar(&o.image, "image", false, "Treat -in as an image even without an image extension")
	fs.BoolVar(&o.plain, "plain", false, "Decrypt without looking for an image envelope")
	fs.BoolVar(&o.debug, "debug", env.Debug, "Log cipher operations and IVs")
	fs.StringVar(&o.logLevel, "log-level", env.LogLevel, "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := blockmode.NewLogger(o.debug, o.logLevel)
	logger.SetOutput(os.Stderr)

	if o.op == "keygen" {
		return keygen(o, stdout)
	}

	mode, err := blockmode.ParseMode(o.mode)
	if err != nil {
		return err
	}
	key, err := resolveKey(o, stdout)
	if err != nil {
		return err
	}
	logger.Info("using %s with %s", mode, key)

	c, err := blockmode.New(mode, key.Bytes,
		blockmode.WithSegmentSize(o.segment),
		blockmode.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	switch o.op {
	case "encrypt":
		return encryptFile(c, o, stdout)
	case "decrypt":
		return decryptFile(c, o, logger, stdout)
	case "visualize":
		return visualize(c, o, stdout)
	case "put", "get":
		return transfer(context.Background(), mode, key, o, stdout)
	default:
		return fmt.Errorf("unknown -op %q", o.op)
	}
}

func keygen(o options, stdout io.Writer) error {
	var (
		key *krypto.Key
		err error
	)
	if o.passphrase != "" {
		key, err = deriveKey(o, stdout)
	} else {
		key, err = krypto.GenerateKey(o.bits / 8)
	}
	if err != nil {
		return err
	}
	if key.ID != uuid.Nil {
		fmt.Fprintf(stdout, "id: %s\n", key.ID)
	}
	fmt.Fprintf(stdout, "hex: %s\n", key.Hex())
	fmt.Fprintf(stdout, "base64: %s\n", key.Base64())
	fmt.Fprintf(stdout, "fingerprint: %s\n", key.Fingerprint())
	return nil
}

// resolveKey picks the key from -passphrase, then -key. A random key is
// printed so the output can be decrypted later.
func resolveKey(o options, stdout io.Writer) (*krypto.Key, error) {
	if o.passphrase != "" {
		return deriveKey(o, stdout)
	}
	switch o.key {
	case "":
		return nil, errNoKey
	case "random":
		if o.op == "decrypt" || o.op == "get" {
			return nil, fmt.Errorf("a random key cannot %s", o.op)
		}
		key, err := krypto.GenerateKey(o.bits / 8)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(stdout, "key: %s\n", key.Hex())
		return key, nil
	default:
		return krypto.ParseKey(o.key)
	}
}

func deriveKey(o options, stdout io.Writer) (*krypto.Key, error) {
	var (
		salt []byte
		err  error
	)
	if o.salt != "" {
		salt, err = krypto.DecodeSalt(o.salt)
	} else if o.op == "decrypt" || o.op == "get" {
		return nil, errNoSalt
	} else {
		salt, err = krypto.NewSalt()
		if err == nil {
			fmt.Fprintf(stdout, "salt: %s\n", krypto.EncodeSalt(salt))
		}
	}
	if err != nil {
		return nil, err
	}
	return krypto.DeriveKey(o.passphrase, salt, o.bits/8)
}

func encryptFile(c blockmode.Cipher, o options, stdout io.Writer) error {
	if o.in == "" {
		return errNoInput
	}
	isImage := o.image || imagekit.IsImageFile(o.in)

	var out []byte
	if isImage {
		f, err := os.Open(o.in)
		if err != nil {
			return err
		}
		raw, err := imagekit.Encode(f)
		f.Close()
		if err != nil {
			return err
		}
		ct, err := c.Encrypt(raw.Pix)
		if err != nil {
			return err
		}
		out = raw.Marshal(ct)
	} else {
		data, err := os.ReadFile(o.in)
		if err != nil {
			return err
		}
		if out, err = c.Encrypt(data); err != nil {
			return err
		}
	}

	dst := o.out
	if dst == "" {
		dst = outputName("encrypt", o.in, isImage)
	}
	if err := os.WriteFile(dst, out, 0600); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "encrypted %s with %s -> %s\n", o.in, c.Mode(), dst)
	return nil
}

// decryptFile restores an image when the input holds a valid envelope whose
// body decrypts to the recorded pixel count, and otherwise decrypts the whole
// file.
func decryptFile(c blockmode.Cipher, o options, logger *blockmode.Logger, stdout io.Writer) error {
	if o.in == "" {
		return errNoInput
	}
	data, err := os.ReadFile(o.in)
	if err != nil {
		return err
	}

	if !o.plain {
		raw, err := decryptImage(c, data)
		if err == nil {
			dst := o.out
			if dst == "" {
				dst = outputName("decrypt", o.in, true)
			}
			if err := writePNG(dst, raw); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "decrypted %dx%d image %s -> %s\n", raw.Width, raw.Height, o.in, dst)
			return nil
		}
		logger.Debug("%s is not an encrypted image: %v", o.in, err)
	}

	plain, err := c.Decrypt(data)
	if err != nil {
		return err
	}
	dst := o.out
	if dst == "" {
		dst = outputName("decrypt", o.in, false)
	}
	if err := os.WriteFile(dst, plain, 0600); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "decrypted %s -> %s\n", o.in, dst)
	return nil
}

func decryptImage(c blockmode.Cipher, data []byte) (*imagekit.Raw, error) {
	env, err := imagekit.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	pix, err := c.Decrypt(env.Body)
	if err != nil {
		return nil, err
	}
	return imagekit.FromPixels(env.Width, env.Height, pix)
}

func visualize(c blockmode.Cipher, o options, stdout io.Writer) error {
	if o.in == "" {
		return errNoInput
	}
	f, err := os.Open(o.in)
	if err != nil {
		return err
	}
	raw, err := imagekit.Encode(f)
	f.Close()
	if err != nil {
		return err
	}
	vis, err := imagekit.Visualize(c, raw)
	if err != nil {
		return err
	}

	dst := o.out
	if dst == "" {
		base := filepath.Base(o.in)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		dst = filepath.Join(filepath.Dir(o.in), fmt.Sprintf("visual_%s_%s.png", strings.ToLower(c.Mode().String()), stem))
	}
	if err := writePNG(dst, vis); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "visualized %s with %s -> %s\n", o.in, c.Mode(), dst)
	return nil
}

// transfer uploads or downloads through the filekit store configured by the
// CIPHERKIT_FILEKIT_* variables, with encryption forced on using the CLI key.
func transfer(ctx context.Context, mode blockmode.Mode, key *krypto.Key, o options, stdout io.Writer) error {
	if o.path == "" {
		return errors.New("missing -path")
	}
	cfg, err := filekit.GetConfig()
	if err != nil {
		return err
	}
	cfg.EncryptionEnabled = true
	cfg.EncryptionMode = mode.String()
	cfg.EncryptionKey = key.Hex()
	cfg.EncryptionSegmentSize = o.segment

	store, err := filekit.New(*cfg)
	if err != nil {
		return err
	}

	if o.op == "put" {
		if o.in == "" {
			return errNoInput
		}
		f, err := os.Open(o.in)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := store.Upload(ctx, o.path, f); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "stored %s as %s (%s, %s)\n", o.in, o.path, cfg.Driver, mode)
		return nil
	}

	rc, err := store.Download(ctx, o.path)
	if err != nil {
		return err
	}
	defer rc.Close()

	dst := o.out
	if dst == "" {
		dst = filepath.Base(o.path)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "fetched %s -> %s\n", o.path, dst)
	return nil
}

func writePNG(name string, raw *imagekit.Raw) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if err := raw.PNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// outputName derives the default output path next to in.
//
//	encrypt notes.txt          -> cipher_notes.txt
//	encrypt tux.png (image)    -> cipher_tux.bin
//	decrypt cipher_tux.bin     -> cipher_tux_decrypted (.png for images)
//	decrypt notes.txt          -> decrypted_notes.txt
func outputName(op, in string, image bool) string {
	dir, base := filepath.Split(in)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var name string
	switch op {
	case "encrypt":
		name = "cipher_" + base
		if image {
			name = "cipher_" + stem + ".bin"
		}
	default:
		switch strings.ToLower(ext) {
		case ".enc", ".bin":
			name = stem + "_decrypted"
		default:
			name = "decrypted_" + base
			if image {
				name = "decrypted_" + stem
			}
		}
		if image {
			name += ".png"
		}
	}
	return filepath.Join(dir, name)
}
