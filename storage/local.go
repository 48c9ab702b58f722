package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// partialSuffix marks in-flight uploads. List never reports them and SweepPartials removes stale ones.
const partialSuffix = ".part"

// LocalStore keeps objects as plain files below root.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at root, creating the directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("uploads root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute uploads root.
func (s *LocalStore) Root() string {
	return s.root
}

// DirPath returns the absolute path of a relative dir.
func (s *LocalStore) DirPath(dir string) (string, error) {
	clean, err := CleanDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) filePath(dir, name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidKey
	}
	p, err := s.DirPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(p, name), nil
}

func (s *LocalStore) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.DirPath(dir)
	if err != nil {
		return err
	}
	// MkdirAll tolerates concurrent creators of the same directory
	return os.MkdirAll(p, 0o755)
}

func (s *LocalStore) Save(ctx context.Context, dir, name string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst, err := s.filePath(dir, name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+name+"-*"+partialSuffix)
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}
	return n, nil
}

func (s *LocalStore) List(ctx context.Context, dir string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.DirPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Object{}, nil
		}
		return nil, err
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || isPartial(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// removed between ReadDir and Info
				continue
			}
			return nil, err
		}
		objects = append(objects, objectFromInfo(filepath.Join(p, e.Name()), info))
	}
	return objects, nil
}

func (s *LocalStore) Stat(ctx context.Context, dir, name string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	p, err := s.filePath(dir, name)
	if err != nil {
		return Object{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, ErrNotExist
		}
		return Object{}, err
	}
	if !info.Mode().IsRegular() {
		return Object{}, ErrNotExist
	}
	return objectFromInfo(p, info), nil
}

func (s *LocalStore) Move(ctx context.Context, dir, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.filePath(dir, from)
	if err != nil {
		return err
	}
	dst, err := s.filePath(dir, to)
	if err != nil {
		return err
	}
	// os.Rename silently replaces files, so any entry under dst counts as taken.
	if _, err := os.Lstat(dst); err == nil {
		return ErrExist
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.filePath(dir, name)
	if err != nil {
		return err
	}
	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return ErrNotExist
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	clean, err := CleanDir(key)
	if err != nil || clean == "" {
		return nil, Object{}, ErrInvalidKey
	}
	p := filepath.Join(s.root, filepath.FromSlash(clean))
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotExist
		}
		return nil, Object{}, err
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, Object{}, ErrNotExist
	}
	return f, objectFromInfo(p, info), nil
}

// SweepPartials removes temp files of uploads that never completed and are older than maxAge.
func (s *LocalStore) SweepPartials(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !isPartial(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, partialSuffix)
}

func objectFromInfo(p string, info fs.FileInfo) Object {
	return Object{
		Name:       info.Name(),
		Size:       info.Size(),
		CreatedAt:  birthTime(p, info),
		ModifiedAt: info.ModTime(),
	}
}
