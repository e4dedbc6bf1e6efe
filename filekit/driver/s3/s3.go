package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobeaver/cipherkit/filekit"
)

// Client is the subset of *s3.Client the adapter uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Adapter provides an S3 implementation of filekit.FileSystem
type Adapter struct {
	client Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New creates a new S3 filesystem adapter
func New(client Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// NewFromConfig builds an S3 client from the filekit S3 settings. Static
// credentials are used when an access key is configured, otherwise the default
// AWS credential chain applies. A custom endpoint and path-style addressing
// make S3-compatible stores such as MinIO work.
func NewFromConfig(ctx context.Context, cfg filekit.Config) (*Adapter, error) {
	if cfg.S3Bucket == "" {
		return nil, &filekit.PathError{Op: "config", Path: "FILEKIT_S3_BUCKET", Err: filekit.ErrInvalidConfig}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3ForcePathStyle
	})

	return New(client, cfg.S3Bucket, WithPrefix(cfg.S3Prefix)), nil
}

func (a *Adapter) key(p string) string {
	return path.Join(a.prefix, p)
}

func (a *Adapter) dirKey(p string) string {
	key := path.Join(a.prefix, p)
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return key
}

// Upload implements filekit.FileSystem
func (a *Adapter) Upload(ctx context.Context, filePath string, content io.Reader, options ...filekit.Option) error {
	opts := filekit.ApplyOptions(options...)

	input := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
		Body:   content,
	}

	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	switch opts.Visibility {
	case filekit.Public:
		input.ACL = types.ObjectCannedACLPublicRead
	case filekit.Private:
		input.ACL = types.ObjectCannedACLPrivate
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return mapS3Error("upload", filePath, err)
	}
	return nil
}

// Download implements filekit.FileSystem
func (a *Adapter) Download(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return nil, mapS3Error("download", filePath, err)
	}
	return resp.Body, nil
}

// Delete implements filekit.FileSystem. S3 deletes are idempotent, so a
// missing object is not reported.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return mapS3Error("delete", filePath, err)
	}
	return nil
}

// Exists implements filekit.FileSystem
func (a *Adapter) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, mapS3Error("exists", filePath, err)
	}
	return true, nil
}

// FileInfo implements filekit.FileSystem
func (a *Adapter) FileInfo(ctx context.Context, filePath string) (*filekit.File, error) {
	key := a.key(filePath)
	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error("fileinfo", filePath, err)
	}

	metadata := make(map[string]string, len(resp.Metadata))
	for k, v := range resp.Metadata {
		metadata[strings.ToLower(k)] = v
	}

	return &filekit.File{
		Name:        path.Base(filePath),
		Path:        filePath,
		Size:        aws.ToInt64(resp.ContentLength),
		ModTime:     aws.ToTime(resp.LastModified),
		IsDir:       strings.HasSuffix(key, "/"),
		ContentType: aws.ToString(resp.ContentType),
		Metadata:    metadata,
	}, nil
}

// List implements filekit.FileSystem. It returns the direct children of
// prefix, following continuation tokens.
func (a *Adapter) List(ctx context.Context, prefix string) ([]filekit.File, error) {
	listPrefix := a.dirKey(prefix)

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(a.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})

	var files []filekit.File
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error("list", prefix, err)
		}

		for _, p := range page.CommonPrefixes {
			dirName := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), listPrefix), "/")
			if dirName == "" {
				continue
			}
			files = append(files, filekit.File{
				Name:  dirName,
				Path:  path.Join(prefix, dirName),
				IsDir: true,
			})
		}

		for _, obj := range page.Contents {
			fileName := strings.TrimPrefix(aws.ToString(obj.Key), listPrefix)
			if fileName == "" || strings.Contains(fileName, "/") {
				continue
			}
			files = append(files, filekit.File{
				Name:    fileName,
				Path:    path.Join(prefix, fileName),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	return files, nil
}

// CreateDir implements filekit.FileSystem
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	// S3 has no directories; an empty object with a trailing slash stands in.
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.dirKey(dirPath)),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String("application/x-directory"),
	})
	if err != nil {
		return mapS3Error("createdir", dirPath, err)
	}
	return nil
}

// DeleteDir implements filekit.FileSystem
func (a *Adapter) DeleteDir(ctx context.Context, dirPath string) error {
	dirKey := a.dirKey(dirPath)
	if dirKey == "" {
		return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: filekit.ErrNotAllowed}
	}

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(dirKey),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return mapS3Error("deletedir", dirPath, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			objects[i] = types.ObjectIdentifier{Key: obj.Key}
		}
		_, err = a.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(a.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return mapS3Error("deletedir", dirPath, err)
		}
		deleted += len(objects)
	}

	if deleted == 0 {
		return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: filekit.ErrNotExist}
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

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &notFound)
}

// mapS3Error maps S3 errors to filekit errors
func mapS3Error(op, path string, err error) error {
	if isNotFound(err) {
		err = filekit.ErrNotExist
	}
	return &filekit.PathError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
