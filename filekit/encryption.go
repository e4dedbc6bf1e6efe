package filekit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gobeaver/cipherkit/blockmode"
)

// EncryptedFS is a wrapper around a FileSystem that encrypts and decrypts data.
//
// Each upload is encrypted as one message, so the whole file is held in
// memory; maxSize bounds that. The cipher mode is stored as object metadata
// and checked on download by drivers that keep metadata.
type EncryptedFS struct {
	fs      FileSystem
	cipher  blockmode.Cipher
	maxSize int64
}

// NewEncryptedFS creates a new encrypted filesystem. A maxSize of zero or less
// disables the size limit.
func NewEncryptedFS(fs FileSystem, c blockmode.Cipher, maxSize int64) *EncryptedFS {
	return &EncryptedFS{
		fs:      fs,
		cipher:  c,
		maxSize: maxSize,
	}
}

// Upload encrypts the content before uploading
func (e *EncryptedFS) Upload(ctx context.Context, path string, content io.Reader, options ...Option) error {
	plaintext, err := readAll(content, e.maxSize)
	if err != nil {
		return &PathError{Op: "upload", Path: path, Err: err}
	}

	ciphertext, err := e.cipher.Encrypt(plaintext)
	if err != nil {
		return &PathError{Op: "upload", Path: path, Err: err}
	}

	options = append(options,
		WithContentType("application/octet-stream"),
		WithMetadata(map[string]string{
			MetaCipherMode: e.cipher.Mode().String(),
			MetaPlainSize:  strconv.Itoa(len(plaintext)),
		}),
	)
	return e.fs.Upload(ctx, path, bytes.NewReader(ciphertext), options...)
}

// Download decrypts the content after downloading
func (e *EncryptedFS) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := e.checkMode(ctx, path); err != nil {
		return nil, err
	}

	encryptedContent, err := e.fs.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer encryptedContent.Close()

	ciphertext, err := io.ReadAll(encryptedContent)
	if err != nil {
		return nil, &PathError{Op: "download", Path: path, Err: err}
	}

	plaintext, err := e.cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, &PathError{Op: "download", Path: path, Err: err}
	}
	return io.NopCloser(bytes.NewReader(plaintext)), nil
}

// checkMode compares the recorded cipher mode, if any, with ours.
func (e *EncryptedFS) checkMode(ctx context.Context, path string) error {
	info, err := e.fs.FileInfo(ctx, path)
	if err != nil {
		return err
	}
	recorded, ok := info.Metadata[MetaCipherMode]
	if !ok || recorded == e.cipher.Mode().String() {
		return nil
	}
	return &PathError{
		Op:   "download",
		Path: path,
		Err:  fmt.Errorf("%w: stored %s, have %s", ErrCipherMismatch, recorded, e.cipher.Mode()),
	}
}

// Delete delegates to the underlying filesystem
func (e *EncryptedFS) Delete(ctx context.Context, path string) error {
	return e.fs.Delete(ctx, path)
}

// Exists delegates to the underlying filesystem
func (e *EncryptedFS) Exists(ctx context.Context, path string) (bool, error) {
	return e.fs.Exists(ctx, path)
}

// FileInfo reports the plaintext size when the driver kept it.
func (e *EncryptedFS) FileInfo(ctx context.Context, path string) (*File, error) {
	info, err := e.fs.FileInfo(ctx, path)
	if err != nil {
		return nil, err
	}
	if s, ok := info.Metadata[MetaPlainSize]; ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			info.Size = n
		}
	}
	return info, nil
}

// List delegates to the underlying filesystem
func (e *EncryptedFS) List(ctx context.Context, prefix string) ([]File, error) {
	return e.fs.List(ctx, prefix)
}

// CreateDir delegates to the underlying filesystem
func (e *EncryptedFS) CreateDir(ctx context.Context, path string) error {
	return e.fs.CreateDir(ctx, path)
}

// DeleteDir delegates to the underlying filesystem
func (e *EncryptedFS) DeleteDir(ctx context.Context, path string) error {
	return e.fs.DeleteDir(ctx, path)
}

// UploadFile encrypts and uploads a local file
func (e *EncryptedFS) UploadFile(ctx context.Context, path, localPath string, options ...Option) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &PathError{
			Op:   "uploadfile",
			Path: localPath,
			Err:  err,
		}
	}
	defer file.Close()

	return e.Upload(ctx, path, file, options...)
}
