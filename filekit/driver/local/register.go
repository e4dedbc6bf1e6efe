package local

import "github.com/gobeaver/cipherkit/filekit"

func init() {
	filekit.RegisterDriver("local", func(cfg filekit.Config) (filekit.FileSystem, error) {
		return New(cfg.LocalBasePath)
	})
}
