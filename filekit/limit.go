package filekit

import (
	"context"
	"io"
)

// SizeLimitReader restricts the number of bytes read and returns an error if the limit is exceeded.
type SizeLimitReader struct {
	R     io.Reader
	Limit int64
	N     int64
}

func (l *SizeLimitReader) Read(p []byte) (n int, err error) {
	n, err = l.R.Read(p)
	l.N += int64(n)
	if l.N > l.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// readAll buffers r, failing with ErrFileTooLarge past limit bytes. A limit of
// zero or less means unlimited.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = &SizeLimitReader{R: r, Limit: limit}
	}
	return io.ReadAll(r)
}

// defaultsFS prepends configured default options to every upload, so
// per-call options still win.
type defaultsFS struct {
	FileSystem
	defaults []Option
}

func withDefaults(fs FileSystem, defaults ...Option) FileSystem {
	if len(defaults) == 0 {
		return fs
	}
	return &defaultsFS{FileSystem: fs, defaults: defaults}
}

// Upload implements FileSystem
func (d *defaultsFS) Upload(ctx context.Context, path string, content io.Reader, options ...Option) error {
	all := make([]Option, 0, len(d.defaults)+len(options))
	all = append(all, d.defaults...)
	all = append(all, options...)
	return d.FileSystem.Upload(ctx, path, content, all...)
}
