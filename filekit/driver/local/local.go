package local

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobeaver/cipherkit/filekit"
)

// metaSuffix names the sidecar that keeps upload metadata next to a file.
const metaSuffix = ".meta.json"

// Adapter provides a local filesystem implementation of filekit.FileSystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter rooted at root, creating it if
// needed.
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute storage root.
func (a *Adapter) Root() string {
	return a.root
}

// resolve maps a storage path to a path on disk, refusing anything that
// escapes the root.
func (a *Adapter) resolve(ctx context.Context, op, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath := filepath.Join(a.root, filepath.Clean(path))
	if !isPathUnderRoot(a.root, fullPath) {
		return "", &filekit.PathError{Op: op, Path: path, Err: filekit.ErrNotAllowed}
	}
	return fullPath, nil
}

// pathError wraps err, mapping missing files to filekit.ErrNotExist.
func pathError(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		err = filekit.ErrNotExist
	}
	return &filekit.PathError{Op: op, Path: path, Err: err}
}

// Upload implements filekit.FileSystem
func (a *Adapter) Upload(ctx context.Context, path string, content io.Reader, options ...filekit.Option) error {
	fullPath, err := a.resolve(ctx, "upload", path)
	if err != nil {
		return err
	}
	opts := filekit.ApplyOptions(options...)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return pathError("upload", path, err)
	}

	perm := os.FileMode(0600)
	if opts.Visibility == filekit.Public {
		perm = 0644
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return pathError("upload", path, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return pathError("upload", path, err)
	}
	if err := f.Close(); err != nil {
		return pathError("upload", path, err)
	}
	// OpenFile only applies perm to new files.
	if err := os.Chmod(fullPath, perm); err != nil {
		return pathError("upload", path, err)
	}

	if err := writeMeta(fullPath, opts.Metadata); err != nil {
		return pathError("upload", path, err)
	}
	return nil
}

// Download implements filekit.FileSystem
func (a *Adapter) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := a.resolve(ctx, "download", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, pathError("download", path, err)
	}
	return f, nil
}

// Delete implements filekit.FileSystem
func (a *Adapter) Delete(ctx context.Context, path string) error {
	fullPath, err := a.resolve(ctx, "delete", path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return pathError("delete", path, err)
	}
	if err := os.Remove(metaPath(fullPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pathError("delete", path, err)
	}
	return nil
}

// Exists implements filekit.FileSystem
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := a.resolve(ctx, "exists", path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, pathError("exists", path, err)
	}
	return true, nil
}

// FileInfo implements filekit.FileSystem
func (a *Adapter) FileInfo(ctx context.Context, path string) (*filekit.File, error) {
	fullPath, err := a.resolve(ctx, "fileinfo", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, pathError("fileinfo", path, err)
	}

	file := &filekit.File{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if !info.IsDir() {
		file.ContentType = getContentType(fullPath)
		if file.Metadata, err = readMeta(fullPath); err != nil {
			return nil, pathError("fileinfo", path, err)
		}
	}
	return file, nil
}

// List implements filekit.FileSystem
func (a *Adapter) List(ctx context.Context, prefix string) ([]filekit.File, error) {
	fullPath, err := a.resolve(ctx, "list", prefix)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, pathError("list", prefix, err)
	}
	if !info.IsDir() {
		return nil, pathError("list", prefix, filekit.ErrNotDir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, pathError("list", prefix, err)
	}

	files := make([]filekit.File, 0, len(entries))
	for _, entry := range entries {
		if isMetaFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		entryPath := filepath.Join(prefix, entry.Name())
		file := filekit.File{
			Name:    entry.Name(),
			Path:    entryPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		}
		if !info.IsDir() {
			file.ContentType = getContentType(filepath.Join(fullPath, entry.Name()))
		}
		files = append(files, file)
	}

	return files, nil
}

// CreateDir implements filekit.FileSystem
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	fullPath, err := a.resolve(ctx, "createdir", path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return pathError("createdir", path, err)
	}
	return nil
}

// DeleteDir implements filekit.FileSystem
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	fullPath, err := a.resolve(ctx, "deletedir", path)
	if err != nil {
		return err
	}
	if fullPath == a.root {
		return pathError("deletedir", path, filekit.ErrNotAllowed)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return pathError("deletedir", path, err)
	}
	if !info.IsDir() {
		return pathError("deletedir", path, filekit.ErrNotDir)
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return pathError("deletedir", path, err)
	}
	return nil
}

// UploadFile implements filekit.Uploader
func (a *Adapter) UploadFile(ctx context.Context, path string, localPath string, options ...filekit.Option) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &filekit.PathError{
			Op:   "uploadfile",
			Path: localPath,
			Err:  err,
		}
	}
	defer file.Close()

	return a.Upload(ctx, path, file, options...)
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func metaPath(fullPath string) string {
	return filepath.Join(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+metaSuffix)
}

func isMetaFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, metaSuffix)
}

// writeMeta stores metadata in the sidecar, removing a stale one when there
// is nothing to store.
func writeMeta(fullPath string, metadata map[string]string) error {
	if len(metadata) == 0 {
		err := os.Remove(metaPath(fullPath))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath(fullPath), data, 0600)
}

func readMeta(fullPath string) (map[string]string, error) {
	data, err := os.ReadFile(metaPath(fullPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var metadata map[string]string
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// getContentType tries to determine the content type of a file
func getContentType(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return ""
	}

	return http.DetectContentType(buffer[:n])
}
