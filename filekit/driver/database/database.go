// Package database stores filekit files as rows of a SQL table through GORM.
// SQLite, PostgreSQL, MySQL and LibSQL/Turso are supported with pure Go
// drivers, so builds stay CGO-free.
//
// Every file and directory is one row keyed by its cleaned path. Uploading
// a/b/c.txt also creates rows for the directories a and a/b.
package database

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gobeaver/cipherkit/filekit"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// record is one stored file or directory.
type record struct {
	Path         string `gorm:"primaryKey;size:768"`
	Parent       string `gorm:"index;size:768"`
	IsDir        bool
	Data         []byte
	Size         int64
	ContentType  string            `gorm:"size:255"`
	CacheControl string            `gorm:"size:255"`
	Visibility   string            `gorm:"size:16"`
	Metadata     map[string]string `gorm:"serializer:json;type:text"`
	Modified     int64             `gorm:"autoUpdateTime:nano"`
}

func (record) TableName() string {
	return "filekit_files"
}

// Adapter provides a SQL implementation of filekit.FileSystem
type Adapter struct {
	db *gorm.DB
}

// New creates an adapter on an open GORM connection and migrates the table.
func New(db *gorm.DB) (*Adapter, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate filekit table: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Open connects with the filekit database settings and returns the adapter.
func Open(cfg filekit.Config) (*Adapter, error) {
	sqlDB, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: sqlDB})
	case "postgres", "postgresql":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		dialector = sqlite.Dialector{Conn: sqlDB}
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.DatabaseDebug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	adapter, err := New(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return adapter, nil
}

// openSQL opens and pings the database/sql connection for cfg.
func openSQL(cfg filekit.Config) (*sql.DB, error) {
	var driverName, dsn string

	switch cfg.DatabaseDriver {
	case "sqlite", "sqlite3", "":
		driverName = "sqlite"
		dsn = cfg.DatabaseDSN
		if dsn == "" {
			dsn = "filekit.db"
		}
	case "postgres", "postgresql":
		driverName = "pgx"
		dsn = cfg.DatabaseDSN
	case "mysql":
		driverName = "mysql"
		dsn = cfg.DatabaseDSN
	case "libsql", "turso":
		driverName = "libsql"
		dsn = cfg.DatabaseDSN
		if cfg.DatabaseAuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", dsn, cfg.DatabaseAuthToken)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", filekit.ErrInvalidConfig, cfg.DatabaseDriver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: %s needs FILEKIT_DB_DSN", filekit.ErrInvalidConfig, cfg.DatabaseDriver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (a *Adapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// cleanPath returns the row key for p; "" is the root.
func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

func mapError(op, p string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = filekit.ErrNotExist
	}
	return &filekit.PathError{Op: op, Path: p, Err: err}
}

// find loads the row for p without its content.
func (a *Adapter) find(tx *gorm.DB, p string) (*record, error) {
	var rec record
	if err := tx.Omit("data").Where("path = ?", p).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ensureDirs creates rows for every ancestor of p. An ancestor that is a file
// fails with ErrNotDir.
func (a *Adapter) ensureDirs(tx *gorm.DB, p string) error {
	var dirs []string
	for dir := parentOf(p); dir != ""; dir = parentOf(dir) {
		dirs = append(dirs, dir)
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		rec, err := a.find(tx, dirs[i])
		switch {
		case err == nil:
			if !rec.IsDir {
				return fmt.Errorf("%w: %s", filekit.ErrNotDir, dirs[i])
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			dir := record{Path: dirs[i], Parent: parentOf(dirs[i]), IsDir: true}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&dir).Error; err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// Upload implements filekit.FileSystem. An existing file is replaced.
func (a *Adapter) Upload(ctx context.Context, filePath string, content io.Reader, options ...filekit.Option) error {
	p := cleanPath(filePath)
	if p == "" {
		return &filekit.PathError{Op: "upload", Path: filePath, Err: filekit.ErrNotAllowed}
	}
	opts := filekit.ApplyOptions(options...)

	data, err := io.ReadAll(content)
	if err != nil {
		return &filekit.PathError{Op: "upload", Path: filePath, Err: err}
	}

	rec := record{
		Path:         p,
		Parent:       parentOf(p),
		Data:         data,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		Visibility:   string(opts.Visibility),
		Metadata:     opts.Metadata,
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing, err := a.find(tx, p); err == nil && existing.IsDir {
			return filekit.ErrExist
		}
		if err := a.ensureDirs(tx, p); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	})
	if err != nil {
		return &filekit.PathError{Op: "upload", Path: filePath, Err: err}
	}
	return nil
}

// Download implements filekit.FileSystem
func (a *Adapter) Download(ctx context.Context, filePath string) (io.ReadCloser, error) {
	var rec record
	err := a.db.WithContext(ctx).
		Where("path = ? AND is_dir = ?", cleanPath(filePath), false).
		First(&rec).Error
	if err != nil {
		return nil, mapError("download", filePath, err)
	}
	return io.NopCloser(bytes.NewReader(rec.Data)), nil
}

// Delete implements filekit.FileSystem
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	res := a.db.WithContext(ctx).
		Where("path = ? AND is_dir = ?", cleanPath(filePath), false).
		Delete(&record{})
	if res.Error != nil {
		return mapError("delete", filePath, res.Error)
	}
	if res.RowsAffected == 0 {
		return &filekit.PathError{Op: "delete", Path: filePath, Err: filekit.ErrNotExist}
	}
	return nil
}

// Exists implements filekit.FileSystem
func (a *Adapter) Exists(ctx context.Context, filePath string) (bool, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&record{}).
		Where("path = ?", cleanPath(filePath)).
		Count(&n).Error
	if err != nil {
		return false, mapError("exists", filePath, err)
	}
	return n > 0, nil
}

func toFile(rec *record, p string) filekit.File {
	return filekit.File{
		Name:        path.Base(rec.Path),
		Path:        p,
		Size:        rec.Size,
		ModTime:     time.Unix(0, rec.Modified),
		IsDir:       rec.IsDir,
		ContentType: rec.ContentType,
		Metadata:    rec.Metadata,
	}
}

// FileInfo implements filekit.FileSystem
func (a *Adapter) FileInfo(ctx context.Context, filePath string) (*filekit.File, error) {
	rec, err := a.find(a.db.WithContext(ctx), cleanPath(filePath))
	if err != nil {
		return nil, mapError("fileinfo", filePath, err)
	}
	f := toFile(rec, filePath)
	return &f, nil
}

// checkDir reports ErrNotExist or ErrNotDir unless p is the root or a
// directory row.
func (a *Adapter) checkDir(tx *gorm.DB, op, dirPath, p string) error {
	if p == "" {
		return nil
	}
	rec, err := a.find(tx, p)
	if err != nil {
		return mapError(op, dirPath, err)
	}
	if !rec.IsDir {
		return &filekit.PathError{Op: op, Path: dirPath, Err: filekit.ErrNotDir}
	}
	return nil
}

// List implements filekit.FileSystem. It returns the direct children of
// prefix ordered by path.
func (a *Adapter) List(ctx context.Context, prefix string) ([]filekit.File, error) {
	p := cleanPath(prefix)
	db := a.db.WithContext(ctx)
	if err := a.checkDir(db, "list", prefix, p); err != nil {
		return nil, err
	}

	var recs []record
	if err := db.Omit("data").Where("parent = ?", p).Order("path").Find(&recs).Error; err != nil {
		return nil, mapError("list", prefix, err)
	}

	files := make([]filekit.File, 0, len(recs))
	for i := range recs {
		files = append(files, toFile(&recs[i], path.Join(prefix, path.Base(recs[i].Path))))
	}
	return files, nil
}

// CreateDir implements filekit.FileSystem. Missing parents are created too.
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	p := cleanPath(dirPath)
	if p == "" {
		return nil
	}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return a.ensureDirs(tx, path.Join(p, "x"))
	})
	if err != nil {
		return &filekit.PathError{Op: "createdir", Path: dirPath, Err: err}
	}
	return nil
}

// DeleteDir implements filekit.FileSystem. It removes the directory and
// everything below it in one transaction.
func (a *Adapter) DeleteDir(ctx context.Context, dirPath string) error {
	p := cleanPath(dirPath)
	if p == "" {
		return &filekit.PathError{Op: "deletedir", Path: dirPath, Err: filekit.ErrNotAllowed}
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := a.checkDir(tx, "deletedir", dirPath, p); err != nil {
			return err
		}

		dirs := []string{p}
		for i := 0; i < len(dirs); i++ {
			var sub []string
			err := tx.Model(&record{}).
				Where("parent = ? AND is_dir = ?", dirs[i], true).
				Pluck("path", &sub).Error
			if err != nil {
				return mapError("deletedir", dirPath, err)
			}
			dirs = append(dirs, sub...)
		}

		if err := tx.Where("parent IN ?", dirs).Delete(&record{}).Error; err != nil {
			return mapError("deletedir", dirPath, err)
		}
		if err := tx.Where("path = ?", p).Delete(&record{}).Error; err != nil {
			return mapError("deletedir", dirPath, err)
		}
		return nil
	})
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
