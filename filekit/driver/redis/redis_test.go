package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobeaver/cipherkit/blockmode"
	"github.com/gobeaver/cipherkit/filekit"
	"github.com/redis/go-redis/v9"
)

// fakeClient keeps hashes in memory. SCAN returns pageSize keys per call and
// uses the offset into the sorted key list as cursor.
type fakeClient struct {
	mu       sync.Mutex
	hashes   map[string]map[string]string
	pageSize int
	scans    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{hashes: make(map[string]map[string]string), pageSize: 2}
}

func (c *fakeClient) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.hashes[key]
	if h == nil {
		h = make(map[string]string)
		c.hashes[key] = h
	}
	set := func(k string, v interface{}) {
		switch v := v.(type) {
		case []byte:
			h[k] = string(v)
		default:
			h[k] = fmt.Sprint(v)
		}
	}
	if len(values) == 1 {
		if m, ok := values[0].(map[string]interface{}); ok {
			for k, v := range m {
				set(k, v)
			}
			return redis.NewIntResult(int64(len(m)), nil)
		}
	}
	for i := 0; i+1 < len(values); i += 2 {
		set(values[i].(string), values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (c *fakeClient) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	for k, v := range c.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (c *fakeClient) HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	vals := make([]interface{}, len(fields))
	for i, f := range fields {
		if v, ok := c.hashes[key][f]; ok {
			vals[i] = v
		}
	}
	return redis.NewSliceResult(vals, nil)
}

func (c *fakeClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.hashes[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (c *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.hashes[k]; ok {
			delete(c.hashes, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (c *fakeClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans++

	var keys []string
	for k := range c.hashes {
		if globPrefixMatch(match, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := int(cursor)
	if start >= len(keys) {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	end := start + c.pageSize
	if end >= len(keys) {
		return redis.NewScanCmdResult(keys[start:], 0, nil)
	}
	return redis.NewScanCmdResult(keys[start:end], uint64(end), nil)
}

// globPrefixMatch handles the only pattern shape the adapter sends: an
// escaped literal followed by "*".
func globPrefixMatch(pattern, key string) bool {
	if !strings.HasSuffix(pattern, "*") {
		return false
	}
	literal := strings.TrimSuffix(pattern, "*")
	var b strings.Builder
	for i := 0; i < len(literal); i++ {
		if literal[i] == '\\' && i+1 < len(literal) {
			i++
		}
		b.WriteByte(literal[i])
	}
	return strings.HasPrefix(key, b.String())
}

func newAdapter() (*Adapter, *fakeClient) {
	client := newFakeClient()
	a := New(client, "fk:")
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	return a, client
}

func TestUploadDownload(t *testing.T) {
	a, client := newAdapter()
	ctx := context.Background()

	err := a.Upload(ctx, "/docs/a.txt", strings.NewReader("hello"),
		filekit.WithContentType("text/plain"),
		filekit.WithMetadata(map[string]string{"owner": "ops"}),
	)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, ok := client.hashes["fk:docs/a.txt"]; !ok {
		t.Fatalf("hash not stored under prefix: %v", client.hashes)
	}

	rc, err := a.Download(ctx, "docs/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	info, err := a.FileInfo(ctx, "docs/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 5 || info.Name != "a.txt" || info.ContentType != "text/plain" || info.Metadata["owner"] != "ops" {
		t.Errorf("info = %+v", info)
	}
	if !info.ModTime.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("ModTime = %v", info.ModTime)
	}
}

func TestUploadReplacesMetadata(t *testing.T) {
	a, _ := newAdapter()
	ctx := context.Background()

	a.Upload(ctx, "f", strings.NewReader("one"), filekit.WithMetadata(map[string]string{"stale": "yes"}))
	a.Upload(ctx, "f", strings.NewReader("two"))

	info, err := a.FileInfo(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Metadata) != 0 {
		t.Errorf("stale metadata: %v", info.Metadata)
	}
}

func TestNotExist(t *testing.T) {
	a, _ := newAdapter()
	ctx := context.Background()

	if _, err := a.Download(ctx, "nope"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("Download err = %v", err)
	}
	if _, err := a.FileInfo(ctx, "nope"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("FileInfo err = %v", err)
	}
	if err := a.Delete(ctx, "nope"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("Delete err = %v", err)
	}
	if ok, err := a.Exists(ctx, "nope"); ok || err != nil {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	if err := a.DeleteDir(ctx, "nope"); !errors.Is(err, filekit.ErrNotExist) {
		t.Errorf("DeleteDir err = %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	a, client := newAdapter()
	ctx := context.Background()

	for _, p := range []string{"d/1", "d/2", "d/3", "d/4", "d/sub/5", "other/6"} {
		if err := a.Upload(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatal(err)
		}
	}
	client.scans = 0

	files, err := a.List(ctx, "d")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		if f.Name == "1" && f.Size != 3 {
			t.Errorf("size of d/1 = %d", f.Size)
		}
	}
	sort.Strings(names)
	if got := strings.Join(names, ","); got != "1,2,3,4,sub" {
		t.Errorf("List names = %s", got)
	}
	if client.scans < 3 {
		t.Errorf("scan calls = %d, want pagination", client.scans)
	}
}

func TestGlobCharactersInPath(t *testing.T) {
	a, _ := newAdapter()
	ctx := context.Background()

	a.Upload(ctx, "a*/x", strings.NewReader("1"))
	a.Upload(ctx, "ab/y", strings.NewReader("2"))

	files, err := a.List(ctx, "a*")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "x" {
		t.Errorf("List(a*) = %+v", files)
	}
}

func TestDirectories(t *testing.T) {
	a, client := newAdapter()
	ctx := context.Background()

	if err := a.CreateDir(ctx, "box"); err != nil {
		t.Fatal(err)
	}
	info, err := a.FileInfo(ctx, "box")
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir {
		t.Errorf("info = %+v", info)
	}

	for _, p := range []string{"box/a", "box/b", "box/c", "keep"} {
		a.Upload(ctx, p, strings.NewReader("x"))
	}
	if err := a.DeleteDir(ctx, "box"); err != nil {
		t.Fatalf("DeleteDir: %v", err)
	}
	if len(client.hashes) != 1 {
		t.Errorf("keys left: %v", client.hashes)
	}
	if err := a.DeleteDir(ctx, "/"); !errors.Is(err, filekit.ErrNotAllowed) {
		t.Errorf("DeleteDir(root) err = %v", err)
	}
}

func TestEncryptedOverRedis(t *testing.T) {
	a, client := newAdapter()
	c, err := blockmode.New(blockmode.OFB, []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	efs := filekit.NewEncryptedFS(a, c, 0)
	ctx := context.Background()

	if err := efs.Upload(ctx, "k", strings.NewReader("wrapped key")); err != nil {
		t.Fatal(err)
	}
	stored := client.hashes["fk:k"]
	if strings.Contains(stored[fieldData], "wrapped") {
		t.Fatal("plaintext stored")
	}
	if stored[metaFieldPrefix+filekit.MetaCipherMode] != "OFB" {
		t.Errorf("hash = %v", stored)
	}

	rc, err := efs.Download(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "wrapped key" {
		t.Errorf("got %q", data)
	}
}

func TestNewFromConfigBadURL(t *testing.T) {
	_, err := NewFromConfig(filekit.Config{RedisURL: "http://not-redis"})
	if !errors.Is(err, filekit.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestBuildAddr(t *testing.T) {
	if got := buildAddr(filekit.Config{}); got != "localhost:6379" {
		t.Errorf("buildAddr = %q", got)
	}
	if got := buildAddr(filekit.Config{RedisHost: "cache", RedisPort: "6380"}); got != "cache:6380" {
		t.Errorf("buildAddr = %q", got)
	}
}
