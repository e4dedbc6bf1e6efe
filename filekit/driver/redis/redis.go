// Package redis stores filekit files as Redis hashes. It suits small blobs
// such as encrypted keys or configuration, not large media.
//
// Each file is a hash at <prefix><path> holding the content and its
// attributes. Directories are marker hashes whose key ends in "/", as in the
// s3 driver.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gobeaver/cipherkit/filekit"
	"github.com/redis/go-redis/v9"
)

// Hash fields.
const (
	fieldData         = "data"
	fieldSize         = "size"
	fieldContentType  = "content_type"
	fieldCacheControl = "cache_control"
	fieldVisibility   = "visibility"
	fieldModTime      = "mtime"
	fieldDir          = "dir"
	metaFieldPrefix   = "meta:"
)

// Client is the subset of redis.UniversalClient the adapter uses.
type Client interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Adapter provides a Redis implementation of filekit.FileSystem
type Adapter struct {
	client    Client
	keyPrefix string
	now       func() time.Time
}

// New creates an adapter over an existing client. Keys are prefixed with
// keyPrefix.
func New(client Client, keyPrefix string) *Adapter {
	return &Adapter{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// NewFromConfig connects to Redis using the filekit Redis settings and checks
// the connection.
func NewFromConfig(cfg filekit.Config) (*Adapter, error) {
	opts := &redis.UniversalOptions{
		Addrs:    []string{buildAddr(cfg)},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid redis URL: %v", filekit.ErrInvalidConfig, err)
		}
		opts = &redis.UniversalOptions{
			Addrs:     []string{opt.Addr},
			Password:  opt.Password,
			DB:        opt.DB,
			TLSConfig: opt.TLSConfig,
		}
	}

	if cfg.RedisUseTLS && opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return New(client, cfg.RedisKeyPrefix), nil
}

func buildAddr(cfg filekit.Config) string {
	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", host, port)
}

func cleanPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p
}

func (a *Adapter) key(p string) string {
	return a.keyPrefix + cleanPath(p)
}

func (a *Adapter) dirKey(p string) string {
	p = cleanPath(p)
	if p == "" {
		return a.keyPrefix
	}
	return a.keyPrefix + p + "/"
}

// Upload implements filekit.FileSystem. The previous hash is replaced, so
// stale metadata does not survive.
func (a *Adapter) Upload(ctx context.Context, filePath string, content io.Reader, options ...filekit.Option) error {
	opts := filekit.ApplyOptions(options...)

	data, err := io.ReadAll(content)
	if err != nil {
		return &filekit.PathError{Op: "upload", Path: filePath, Err: err}
	}

	fields := map[string]interface{}{
		fieldData:       data,
		fieldSize:       len(data),
		fieldModTime:    a.now().UnixNano(),
		fieldVisibility: string(opts.Visibility),
	}
	if opts.ContentType != "" {
		fields[fieldContentType] = opts.ContentType
	}
	if opts.CacheControl != "" {
		fields[fieldCacheControl] = opts.CacheControl
	}
	for k, v := range opts.Metadata {
		fields[metaFieldPrefix+k] = v
	}

	key := a.key(filePath)
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return &filekit.PathError{Op: "upload", Path: filePath, Err: err}
	}
	if err := a.client.HSet(ctx, key, fields).Err(); err != nil {
		return &filekit.PathError{Op: "upload", Path: filePath, Err: err}
	}
	return nil
}

func (a *Adapter) load(ctx context.Context, op, filePath string) (map[string]string, error) {
	fields, err := a.client.HGetAll(ctx, a.key(filePath)).Result()
	if err != nil {
		return nil, &filekit.PathError{Op: op, Path: filePath, Err: err}
	}
	if len(fields) == 0 {
		return nil, &filekit.PathError{Op: op, Path: filePath, Err: filekit.ErrNotExist}
	}
	return fields, nil
}

// Download implements filekit.FileSystem
func (a *Adapter) Download(ctx context.Context, filePath string) (io.ReadCloser, error) {
	fields, err := a.load(ctx, "download", filePath)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(fields[fieldData])), nil
}

// Delete implements filekit.FileSystem
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	n, err := a.client.Del(ctx, a.key(filePath)).Result()
	if err != nil {
		return &filekit.PathError{Op: "delete", Path: filePath, Err: err}
	}
	if n == 0 {
		return &filekit.PathError{Op: "delete", Path: filePath, Err: filekit.ErrNotExist}
	}
	return nil
}

// Exists implements filekit.FileSystem
func (a *Adapter) Exists(ctx context.Context, filePath string) (bool, error) {
	n, err := a.client.Exists(ctx, a.key(filePath)).Result()
	if err != nil {
		return false, &filekit.PathError{Op: "exists", Path: filePath, Err: err}
	}
	return n > 0, nil
}

// FileInfo implements filekit.FileSystem. Directory markers are reported with
// IsDir set.
func (a *Adapter) FileInfo(ctx context.Context, filePath string) (*filekit.File, error) {
	fields, err := a.load(ctx, "fileinfo", filePath)
	if err != nil {
		marker, merr := a.client.Exists(ctx, a.dirKey(filePath)).Result()
		if merr != nil || marker == 0 {
			return nil, err
		}
		return &filekit.File{Name: path.Base(cleanPath(filePath)), Path: filePath, IsDir: true}, nil
	}

	size, _ := strconv.ParseInt(fields[fieldSize], 10, 64)
	mtime, _ := strconv.ParseInt(fields[fieldModTime], 10, 64)

	metadata := make(map[string]string)
	for k, v := range fields {
		if strings.HasPrefix(k, metaFieldPrefix) {
			metadata[strings.TrimPrefix(k, metaFieldPrefix)] = v
		}
	}

	return &filekit.File{
		Name:        path.Base(cleanPath(filePath)),
		Path:        filePath,
		Size:        size,
		ModTime:     time.Unix(0, mtime),
		ContentType: fields[fieldContentType],
		Metadata:    metadata,
	}, nil
}

// scan returns every key starting with prefix.
func (a *Adapter) scan(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := escapeGlob(prefix) + "*"
	for {
		page, next, err := a.client.Scan(ctx, cursor, match, 1000).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// List implements filekit.FileSystem. It returns the direct children of
// prefix; deeper keys show up as directories.
func (a *Adapter) List(ctx context.Context, prefix string) ([]filekit.File, error) {
	listPrefix := a.dirKey(prefix)
	keys, err := a.scan(ctx, listPrefix)
	if err != nil {
		return nil, &filekit.PathError{Op: "list", Path: prefix, Err: err}
	}

	var files []filekit.File
	seen := make(map[string]bool)
	for _, key := range keys {
		rest := strings.TrimPrefix(key, listPrefix)
		if rest == "" {
			continue
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dirName := rest[:idx]
			if !seen[dirName] {
				seen[dirName] = true
				files = append(files, filekit.File{
					Name:  dirName,
					Path:  path.Join(prefix, dirName),
					IsDir: true,
				})
			}
			continue
		}

		vals, err := a.client.HMGet(ctx, key, fieldSize, fieldModTime).Result()
		if err != nil {
			return nil, &filekit.PathError{Op: "list", Path: prefix, Err: err}
		}
		size, _ := strconv.ParseInt(stringValue(vals, 0), 10, 64)
		mtime, _ := strconv.ParseInt(stringValue(vals, 1), 10, 64)
		files = append(files, filekit.File{
			Name:    rest,
			Path:    path.Join(prefix, rest),
			Size:    size,
			ModTime: time.Unix(0, mtime),
		})
	}

	return files, nil
}

// CreateDir implements filekit.FileSystem
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	if cleanPath(dirPath) == "" {
		return nil
	}
	if err := a.client.HSet(ctx, a.dirKey(dirPath), fieldDir, "1").Err(); err != nil {
		return &filekit.PathError{Op: "createdir", Path: dirPath, Err: err}
	}
	return nil
}

// DeleteDir implements filekit.FileSystem. Keys are removed in batches of
// 1000.
func (a *Adapter) DeleteDir(ctx context.Context, dirPath string) error {
	if cleanPath(dirPath) == "" {
		return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: filekit.ErrNotAllowed}
	}

	keys, err := a.scan(ctx, a.dirKey(dirPath))
	if err != nil {
		return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: err}
	}
	if len(keys) == 0 {
		return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: filekit.ErrNotExist}
	}

	for len(keys) > 0 {
		n := len(keys)
		if n > 1000 {
			n = 1000
		}
		if err := a.client.Del(ctx, keys[:n]...).Err(); err != nil {
			return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: err}
		}
		keys = keys[n:]
	}
	return nil
}

// UploadFile implements filekit.Uploader
func (a *Adapter) UploadFile(ctx context.Context, filePath string, localPath string, options ...filekit.Option) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &filekit.PathError{Op: "uploadfile", Path: localPath, Err: err}
	}
	defer file.Close()

	return a.Upload(ctx, filePath, file, options...)
}

func stringValue(vals []interface{}, i int) string {
	if i >= len(vals) {
		return ""
	}
	s, _ := vals[i].(string)
	return s
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
