package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobeaver/cipherkit/blockmode"
	"github.com/gobeaver/cipherkit/filekit"
)

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestUploadDownload(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	if err := a.Upload(ctx, "docs/readme.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	rc, err := a.Download(ctx, "docs/readme.txt")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	info, err := a.FileInfo(ctx, "docs/readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 5 || info.Name != "readme.txt" || info.IsDir {
		t.Errorf("info = %+v", info)
	}
	if !strings.HasPrefix(info.ContentType, "text/plain") {
		t.Errorf("ContentType = %q", info.ContentType)
	}
}

func TestVisibility(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	tests := []struct {
		vis  filekit.Visibility
		want os.FileMode
	}{
		{filekit.Public, 0644},
		{filekit.Private, 0600},
	}
	for _, tt := range tests {
		t.Run(string(tt.vis), func(t *testing.T) {
			if err := a.Upload(ctx, "f", strings.NewReader("x"), filekit.WithVisibility(tt.vis)); err != nil {
				t.Fatal(err)
			}
			st, err := os.Stat(filepath.Join(a.Root(), "f"))
			if err != nil {
				t.Fatal(err)
			}
			if st.Mode().Perm() != tt.want {
				t.Errorf("perm = %o, want %o", st.Mode().Perm(), tt.want)
			}
		})
	}
}

func TestMetadataSidecar(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	meta := map[string]string{filekit.MetaCipherMode: "CBC"}
	if err := a.Upload(ctx, "x.bin", strings.NewReader("data"), filekit.WithMetadata(meta)); err != nil {
		t.Fatal(err)
	}
	info, err := a.FileInfo(ctx, "x.bin")
	if err != nil {
		t.Fatal(err)
	}
	if info.Metadata[filekit.MetaCipherMode] != "CBC" {
		t.Errorf("Metadata = %v", info.Metadata)
	}

	files, err := a.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "x.bin" {
		t.Errorf("List exposed the sidecar: %+v", files)
	}

	// Re-uploading without metadata drops the stale sidecar.
	if err := a.Upload(ctx, "x.bin", strings.NewReader("plain")); err != nil {
		t.Fatal(err)
	}
	info, _ = a.FileInfo(ctx, "x.bin")
	if len(info.Metadata) != 0 {
		t.Errorf("stale metadata: %v", info.Metadata)
	}

	a.Upload(ctx, "y.bin", strings.NewReader("data"), filekit.WithMetadata(meta))
	if err := a.Delete(ctx, "y.bin"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(metaPath(filepath.Join(a.Root(), "y.bin"))); !errors.Is(err, os.ErrNotExist) {
		t.Error("sidecar survived Delete")
	}
}

func TestPathEscape(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	for _, p := range []string{"../escape.txt", "a/../../escape.txt"} {
		err := a.Upload(ctx, p, strings.NewReader("x"))
		if !errors.Is(err, filekit.ErrNotAllowed) {
			t.Errorf("Upload(%q) err = %v, want ErrNotAllowed", p, err)
		}
		if _, err := a.Download(ctx, p); !errors.Is(err, filekit.ErrNotAllowed) {
			t.Errorf("Download(%q) err = %v, want ErrNotAllowed", p, err)
		}
	}
	if err := a.DeleteDir(ctx, "."); !errors.Is(err, filekit.ErrNotAllowed) {
		t.Errorf("DeleteDir(root) err = %v, want ErrNotAllowed", err)
	}
}

func TestNotExist(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	if _, err := a.Download(ctx, "missing"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("Download err = %v", err)
	}
	if err := a.Delete(ctx, "missing"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("Delete err = %v", err)
	}
	if _, err := a.FileInfo(ctx, "missing"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("FileInfo err = %v", err)
	}
	if ok, err := a.Exists(ctx, "missing"); ok || err != nil {
		t.Errorf("Exists = %v, %v", ok, err)
	}
}

func TestDirectories(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	if err := a.CreateDir(ctx, "a/b"); err != nil {
		t.Fatal(err)
	}
	a.Upload(ctx, "a/file.txt", strings.NewReader("x"))

	files, err := a.List(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("List = %+v", files)
	}

	if _, err := a.List(ctx, "a/file.txt"); !errors.Is(err, filekit.ErrNotDir) {
		t.Errorf("List(file) err = %v, want ErrNotDir", err)
	}
	if err := a.DeleteDir(ctx, "a/file.txt"); !errors.Is(err, filekit.ErrNotDir) {
		t.Errorf("DeleteDir(file) err = %v, want ErrNotDir", err)
	}
	if err := a.DeleteDir(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := a.Exists(ctx, "a"); ok {
		t.Error("directory still exists")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := newAdapter(t)
	if err := a.Upload(ctx, "x", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRegisteredDriverWithEncryption(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	fs, err := filekit.New(filekit.Config{
		Driver:            "local",
		LocalBasePath:     root,
		DefaultVisibility: "private",
		EncryptionEnabled: true,
		EncryptionMode:    "CBC",
		EncryptionKey:     "000102030405060708090a0b0c0d0e0f",
	})
	if err != nil {
		t.Fatalf("filekit.New: %v", err)
	}

	if err := fs.Upload(ctx, "secret.txt", strings.NewReader("top secret")); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(filepath.Join(root, "secret.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "top secret") {
		t.Fatal("plaintext on disk")
	}
	if len(raw) != 2*blockmode.BlockSize {
		t.Errorf("ciphertext is %d bytes, want IV plus one block", len(raw))
	}

	rc, err := fs.Download(ctx, "secret.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "top secret" {
		t.Errorf("got %q", data)
	}

	info, err := fs.FileInfo(ctx, "secret.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != int64(len("top secret")) {
		t.Errorf("Size = %d", info.Size)
	}
}
