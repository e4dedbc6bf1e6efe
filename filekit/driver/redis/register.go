package redis

import "github.com/gobeaver/cipherkit/filekit"

func init() {
	filekit.RegisterDriver("redis", func(cfg filekit.Config) (filekit.FileSystem, error) {
		return NewFromConfig(cfg)
	})
}
