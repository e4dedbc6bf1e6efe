package filekit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

func init() {
	// Register test drivers
	RegisterDriver("memory", newMemoryDriver)
	RegisterDriver("broken", func(Config) (FileSystem, error) {
		return nil, fmt.Errorf("driver unavailable")
	})
}

func newMemoryDriver(cfg Config) (FileSystem, error) {
	return newMemFS(), nil
}

type memObject struct {
	data    []byte
	options Options
}

// memFS keeps files and their upload options in memory.
type memFS struct {
	mu    sync.Mutex
	files map[string]memObject
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]memObject)}
}

func (fs *memFS) Upload(ctx context.Context, path string, reader io.Reader, options ...Option) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = memObject{data: data, options: *ApplyOptions(options...)}
	return nil
}

func (fs *memFS) object(op, path string) (memObject, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	obj, ok := fs.files[path]
	if !ok {
		return memObject{}, &PathError{Op: op, Path: path, Err: ErrNotExist}
	}
	return obj, nil
}

func (fs *memFS) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := fs.object("download", path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (fs *memFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := fs.object("exists", path)
	return err == nil, nil
}

func (fs *memFS) Delete(ctx context.Context, path string) error {
	if _, err := fs.object("delete", path); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.files, path)
	return nil
}

func (fs *memFS) FileInfo(ctx context.Context, path string) (*File, error) {
	obj, err := fs.object("fileinfo", path)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        path[strings.LastIndex(path, "/")+1:],
		Path:        path,
		Size:        int64(len(obj.data)),
		ContentType: obj.options.ContentType,
		Metadata:    obj.options.Metadata,
	}, nil
}

func (fs *memFS) List(ctx context.Context, prefix string) ([]File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var files []File
	for path, obj := range fs.files {
		if strings.HasPrefix(path, prefix) {
			files = append(files, File{Path: path, Size: int64(len(obj.data))})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (fs *memFS) CreateDir(ctx context.Context, path string) error {
	return nil
}

func (fs *memFS) DeleteDir(ctx context.Context, path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for filePath := range fs.files {
		if strings.HasPrefix(filePath, path+"/") {
			delete(fs.files, filePath)
		}
	}
	return nil
}
