// Package storage isolates the uploads tree behind a small repository interface
// so the upload service never touches the filesystem or an object store directly.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotExist is returned when an object or directory does not exist.
	ErrNotExist = errors.New("object does not exist")
	// ErrInvalidKey is returned for keys that are absolute or escape the root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrExist is returned by Move when the target name is already taken by any entry.
	ErrExist = errors.New("object already exists")
)

// Object describes one stored file. Backends derive it from their own metadata at read time.
type Object struct {
	Name       string
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Store is implemented by LocalStore and S3Store. Directories are slash-separated and relative to the root.
type Store interface {
	// EnsureDir creates dir (and parents) if it is absent. It is idempotent.
	EnsureDir(ctx context.Context, dir string) error
	// Save streams r into dir/name. Nothing is visible under name unless the whole stream was written.
	Save(ctx context.Context, dir, name string, r io.Reader) (int64, error)
	// List returns the files directly inside dir. A missing dir yields an empty list.
	List(ctx context.Context, dir string) ([]Object, error)
	// Stat returns metadata for dir/name or ErrNotExist.
	Stat(ctx context.Context, dir, name string) (Object, error)
	// Move renames dir/from to dir/to. It never replaces an existing entry; that yields ErrExist.
	Move(ctx context.Context, dir, from, to string) error
	// Delete removes the file dir/name or returns ErrNotExist. Directories are never removed.
	Delete(ctx context.Context, dir, name string) error
	// Open reads the object stored under a slash key such as "blog/a.png".
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
}

// CleanDir normalizes a relative directory. The empty string and "." are the root itself.
func CleanDir(dir string) (string, error) {
	dir = strings.ReplaceAll(strings.TrimSpace(dir), "\\", "/")
	if strings.HasPrefix(dir, "/") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(dir)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// ValidName reports whether name is a single path element usable as a file name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// JoinKey joins a cleaned dir and a file name into a slash key.
func JoinKey(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
