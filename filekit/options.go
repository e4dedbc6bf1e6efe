package filekit

// Visibility controls who may read an uploaded file.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Options holds per-upload settings. Drivers ignore what they cannot express.
type Options struct {
	Visibility   Visibility
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// Option configures a single upload.
type Option func(*Options)

// WithVisibility sets file permissions (local) or the canned ACL (s3).
func WithVisibility(v Visibility) Option {
	return func(o *Options) {
		o.Visibility = v
	}
}

// WithContentType sets the stored content type.
func WithContentType(contentType string) Option {
	return func(o *Options) {
		o.ContentType = contentType
	}
}

// WithCacheControl sets the Cache-Control header of the stored object.
func WithCacheControl(cacheControl string) Option {
	return func(o *Options) {
		o.CacheControl = cacheControl
	}
}

// WithMetadata merges metadata into the upload. Later calls win per key.
func WithMetadata(metadata map[string]string) Option {
	return func(o *Options) {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			o.Metadata[k] = v
		}
	}
}

// ApplyOptions folds options into a fresh Options value.
func ApplyOptions(options ...Option) *Options {
	opts := &Options{}
	for _, option := range options {
		option(opts)
	}
	return opts
}

// ParseVisibility maps "public" or "private" to a Visibility; anything else is
// rejected with ErrInvalidConfig.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case Public, Private:
		return Visibility(s), nil
	case "":
		return Private, nil
	default:
		return "", &PathError{Op: "config", Path: s, Err: ErrInvalidConfig}
	}
}
