package s3

import (
	"context"

	"github.com/gobeaver/cipherkit/filekit"
)

func init() {
	filekit.RegisterDriver("s3", func(cfg filekit.Config) (filekit.FileSystem, error) {
		return NewFromConfig(context.Background(), cfg)
	})
}
