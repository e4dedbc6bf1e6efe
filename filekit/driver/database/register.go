package database

import "github.com/gobeaver/cipherkit/filekit"

func init() {
	filekit.RegisterDriver("database", func(cfg filekit.Config) (filekit.FileSystem, error) {
		return Open(cfg)
	})
}
