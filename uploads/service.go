// Package uploads implements image upload, listing, rename and delete on top of a storage.Store.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cppla/agencysite/storage"
)

// DefaultMaxSize is the per-file limit when Options.MaxSize is unset.
const DefaultMaxSize int64 = 5 * 1024 * 1024

// UploadedFile is derived from the store at listing time; nothing about it is persisted elsewhere.
type UploadedFile struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype"`
	CreatedAt    time.Time `json:"createdAt"`
	ModifiedAt   time.Time `json:"modifiedAt"`
	Type         string    `json:"type"`
}

// UploadResult is returned once an upload has completed.
// OriginalName equals the generated filename; the client's name only contributes its extension.
type UploadResult struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
}

// RenameResult describes a completed rename.
type RenameResult struct {
	OldFilename string `json:"oldFilename"`
	NewFilename string `json:"newFilename"`
	Path        string `json:"path"`
}

// UploadInput carries one multipart file part and its form fields.
type UploadInput struct {
	FieldName    string
	OriginalName string
	MimeType     string
	// Size is the size declared by the multipart parser; -1 when unknown.
	Size       int64
	Body       io.Reader
	Type       string
	CustomPath string
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxSize int64
	Now     func() time.Time
	Random  func() int64
}

// Service is built once at startup; per-request type and customPath only pick the destination.
type Service struct {
	store   storage.Store
	maxSize int64
	now     func() time.Time
	random  func() int64
}

// NewService creates a Service over store.
func NewService(store storage.Store, opts Options) *Service {
	s := &Service{store: store, maxSize: opts.MaxSize, now: opts.Now, random: opts.Random}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.random == nil {
		s.random = func() int64 { return rand.Int64N(randomSpan) }
	}
	return s
}

// MaxSize returns the per-file limit in bytes.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Upload validates and stores one image. The type gate runs before any directory is created.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Body == nil {
		return nil, ErrNoFile
	}
	if err := CheckFileType(in.OriginalName, in.MimeType); err != nil {
		return nil, err
	}
	if in.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	dir, err := ResolveDestination(in.Type, in.CustomPath)
	if err != nil {
		return nil, err
	}
	if err := s.store.EnsureDir(ctx, dir); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}

	field := in.FieldName
	if field == "" {
		field = "image"
	}
	filename := GenerateFilename(field, in.OriginalName, s.now(), s.random())

	written, err := s.store.Save(ctx, dir, filename, &capReader{r: in.Body, max: s.maxSize})
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("save %s: %w", filename, err)
	}

	return &UploadResult{
		Filename:     filename,
		OriginalName: filename,
		Path:         PublicPath(dir, filename),
		Size:         written,
		Mimetype:     in.MimeType,
	}, nil
}

// List returns the image files currently in the type's directory, in backend order.
func (s *Service) List(ctx context.Context, uploadType string) ([]UploadedFile, error) {
	dir, err := TypeDir(uploadType)
	if err != nil {
		return nil, err
	}
	objects, err := s.store.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	t := NormalizeType(uploadType)
	files := make([]UploadedFile, 0, len(objects))
	for _, obj := range objects {
		if !IsImageFile(obj.Name) {
			continue
		}
		files = append(files, UploadedFile{
			Filename:     obj.Name,
			OriginalName: obj.Name,
			Path:         PublicPath(dir, obj.Name),
			Size:         obj.Size,
			Mimetype:     MimeTypeFor(obj.Name),
			CreatedAt:    obj.CreatedAt,
			ModifiedAt:   obj.ModifiedAt,
			Type:         t,
		})
	}
	return files, nil
}

// Rename moves filename to newFilename inside the type's directory.
// The extension is not enforced, so a rename can change the MIME type reported by List.
func (s *Service) Rename(ctx context.Context, uploadType, filename, newFilename string) (*RenameResult, error) {
	dir, err := TypeDir(uploadType)
	if err != nil {
		return nil, err
	}
	newFilename = strings.TrimSpace(newFilename)
	if newFilename == "" {
		return nil, ErrNewFilenameRequired
	}
	if !storage.ValidName(filename) || !storage.ValidName(newFilename) {
		return nil, ErrInvalidFilename
	}

	if _, err := s.store.Stat(ctx, dir, filename); err != nil {
		return nil, notFoundOr(err, "stat %s", filename)
	}
	if _, err := s.store.Stat(ctx, dir, newFilename); err == nil {
		return nil, ErrFileExists
	} else if !errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", newFilename, err)
	}

	if err := s.store.Move(ctx, dir, filename, newFilename); err != nil {
		if errors.Is(err, storage.ErrExist) {
			return nil, ErrFileExists
		}
		return nil, notFoundOr(err, "rename %s", filename)
	}
	return &RenameResult{
		OldFilename: filename,
		NewFilename: newFilename,
		Path:        PublicPath(dir, newFilename),
	}, nil
}

// Delete unlinks filename from the type's directory. There is no undo.
func (s *Service) Delete(ctx context.Context, uploadType, filename string) error {
	dir, err := TypeDir(uploadType)
	if err != nil {
		return err
	}
	if !storage.ValidName(filename) {
		return ErrInvalidFilename
	}
	if err := s.store.Delete(ctx, dir, filename); err != nil {
		return notFoundOr(err, "delete %s", filename)
	}
	return nil
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotExist) {
		return ErrFileNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// capReader fails with ErrFileTooLarge once more than max bytes have been read.
type capReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.max {
		return n, ErrFileTooLarge
	}
	return n, err
}

// Open reads a stored object by its key below the uploads root, e.g. "blog/a.png".
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, storage.Object, error) {
	rc, obj, err := s.store.Open(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			return nil, storage.Object{}, ErrInvalidPath
		case errors.Is(err, storage.ErrNotExist):
			return nil, storage.Object{}, ErrFileNotFound
		}
		return nil, storage.Object{}, fmt.Errorf("open %s: %w", key, err)
	}
	return rc, obj, nil
}
