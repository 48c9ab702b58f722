package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cppla/agencysite/storage"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStore(root)
	require.NoError(t, err)
	var seq int64
	svc := NewService(store, Options{
		MaxSize: 1024,
		Now:     func() time.Time { return time.UnixMilli(1700000000000) },
		Random:  func() int64 { seq++; return seq },
	})
	return svc, root
}

func pngInput(size int) UploadInput {
	return UploadInput{
		FieldName:    "image",
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         int64(size),
		Body:         bytes.NewReader(bytes.Repeat([]byte{0x89}, size)),
	}
}

func listNames(t *testing.T, svc *Service, typ string) []string {
	t.Helper()
	files, err := svc.List(context.Background(), typ)
	require.NoError(t, err)
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Filename)
	}
	sort.Strings(out)
	return out
}

func TestUploadBlogDefault(t *testing.T) {
	svc, root := newTestService(t)

	res, err := svc.Upload(context.Background(), pngInput(100))
	require.NoError(t, err)

	assert.Equal(t, "image-1700000000000-1.png", res.Filename)
	assert.Equal(t, res.Filename, res.OriginalName)
	assert.Equal(t, "uploads/blog/image-1700000000000-1.png", res.Path)
	assert.Equal(t, int64(100), res.Size)
	assert.Equal(t, "image/png", res.Mimetype)
	assert.FileExists(t, filepath.Join(root, "blog", res.Filename))
}

func TestUploadAvatar(t *testing.T) {
	svc, root := newTestService(t)
	in := pngInput(10)
	in.Type = "avatar"

	res, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Path, "uploads/avatars/"))
	assert.FileExists(t, filepath.Join(root, "avatars", res.Filename))
}

func TestUploadCustomPathCreatesDirectory(t *testing.T) {
	svc, root := newTestService(t)
	in := UploadInput{
		FieldName:    "image",
		OriginalName: "shoe.jpg",
		MimeType:     "image/jpeg",
		Size:         4,
		Body:         strings.NewReader("jpeg"),
		Type:         "avatar",
		CustomPath:   "products",
	}
	_, err := os.Stat(filepath.Join(root, "products"))
	require.True(t, os.IsNotExist(err))

	res, err := svc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Path, "uploads/products/"))
	assert.DirExists(t, filepath.Join(root, "products"))
}

func TestUploadRejectsDisallowedTypeWithoutSideEffects(t *testing.T) {
	svc, root := newTestService(t)
	in := UploadInput{
		FieldName:    "image",
		OriginalName: "notes.pdf",
		MimeType:     "application/pdf",
		Size:         3,
		Body:         strings.NewReader("pdf"),
		CustomPath:   "docs",
	}

	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.NoDirExists(t, filepath.Join(root, "docs"))
}

func TestUploadRejectsDeclaredOversize(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), pngInput(2048))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, listNames(t, svc, "blog"))
}

func TestUploadRejectsOversizeStream(t *testing.T) {
	svc, root := newTestService(t)
	in := pngInput(2048)
	in.Size = -1 // parser did not know the size

	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, listNames(t, svc, "blog"))

	entries, err := os.ReadDir(filepath.Join(root, "blog"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp file may survive")
}

func TestUploadExactlyAtLimit(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Upload(context.Background(), pngInput(1024))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), res.Size)
}

func TestUploadRejectsTraversalCustomPath(t *testing.T) {
	svc, _ := newTestService(t)
	in := pngInput(1)
	in.CustomPath = "../../etc"
	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestUploadWithoutBody(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Upload(context.Background(), UploadInput{OriginalName: "a.png", MimeType: "image/png"})
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestListMissingDirectoryIsEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	files, err := svc.List(context.Background(), "avatar")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestListFiltersNonImagesAndDerivesMetadata(t *testing.T) {
	svc, root := newTestService(t)
	dir := filepath.Join(root, "blog")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("123"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.JPG"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	files, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]UploadedFile{}
	for _, f := range files {
		byName[f.Filename] = f
	}
	a := byName["a.png"]
	assert.Equal(t, "uploads/blog/a.png", a.Path)
	assert.Equal(t, int64(3), a.Size)
	assert.Equal(t, "image/png", a.Mimetype)
	assert.Equal(t, "blog", a.Type)
	assert.False(t, a.ModifiedAt.IsZero())
	assert.Equal(t, "image/jpeg", byName["b.JPG"].Mimetype)
}

func TestListIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		_, err := svc.Upload(context.Background(), pngInput(5))
		require.NoError(t, err)
	}
	first := listNames(t, svc, "blog")
	second := listNames(t, svc, "blog")
	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func TestRenameThenList(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Upload(context.Background(), pngInput(5))
	require.NoError(t, err)

	out, err := svc.Rename(context.Background(), "blog", res.Filename, "hero.png")
	require.NoError(t, err)
	assert.Equal(t, res.Filename, out.OldFilename)
	assert.Equal(t, "hero.png", out.NewFilename)
	assert.Equal(t, "uploads/blog/hero.png", out.Path)

	assert.Equal(t, []string{"hero.png"}, listNames(t, svc, "blog"))
}

func TestRenameCollisionKeepsSource(t *testing.T) {
	svc, root := newTestService(t)
	dir := filepath.Join(root, "blog")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("b"), 0o644))

	_, err := svc.Rename(context.Background(), "blog", "a.png", "b.png")
	assert.ErrorIs(t, err, ErrFileExists)

	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(data))
}

func TestRenameErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rename(ctx, "blog", "missing.png", "x.png")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = svc.Rename(ctx, "blog", "a.png", "  ")
	assert.ErrorIs(t, err, ErrNewFilenameRequired)

	_, err = svc.Rename(ctx, "blog", "a.png", "../escape.png")
	assert.ErrorIs(t, err, ErrInvalidFilename)

	_, err = svc.Rename(ctx, "../x", "a.png", "b.png")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestRenameAllowsExtensionChange(t *testing.T) {
	svc, root := newTestService(t)
	dir := filepath.Join(root, "avatars")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "me.png"), []byte("x"), 0o644))

	_, err := svc.Rename(context.Background(), "avatar", "me.png", "me.webp")
	require.NoError(t, err)

	files, err := svc.List(context.Background(), "avatar")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "image/webp", files[0].Mimetype)
	assert.Equal(t, "uploads/avatars/me.webp", files[0].Path)
	assert.Equal(t, "avatar", files[0].Type)
}

func TestDeleteThenList(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Upload(context.Background(), pngInput(5))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "blog", res.Filename))
	assert.Empty(t, listNames(t, svc, "blog"))

	assert.ErrorIs(t, svc.Delete(context.Background(), "blog", res.Filename), ErrFileNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "blog", "../../x"), ErrInvalidFilename)
}

func TestSameFilenameIndependentPerType(t *testing.T) {
	svc, root := newTestService(t)
	for _, d := range []string{"blog", "avatars"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, d, "same.png"), []byte("x"), 0o644))
	}
	require.NoError(t, svc.Delete(context.Background(), "avatar", "same.png"))
	assert.Equal(t, []string{"same.png"}, listNames(t, svc, "blog"))
	assert.Empty(t, listNames(t, svc, "avatar"))
}

// mockStore lets tests inject backend failures.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) EnsureDir(ctx context.Context, dir string) error {
	return m.Called(ctx, dir).Error(0)
}

func (m *mockStore) Save(ctx context.Context, dir, name string, r io.Reader) (int64, error) {
	args := m.Called(ctx, dir, name, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) List(ctx context.Context, dir string) ([]storage.Object, error) {
	args := m.Called(ctx, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Object), args.Error(1)
}

func (m *mockStore) Stat(ctx context.Context, dir, name string) (storage.Object, error) {
	args := m.Called(ctx, dir, name)
	return args.Get(0).(storage.Object), args.Error(1)
}

func (m *mockStore) Move(ctx context.Context, dir, from, to string) error {
	return m.Called(ctx, dir, from, to).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, dir, name string) error {
	return m.Called(ctx, dir, name).Error(0)
}

func (m *mockStore) Open(ctx context.Context, key string) (io.ReadCloser, storage.Object, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, storage.Object{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.Object), args.Error(2)
}

func TestBackendErrorsAreWrapped(t *testing.T) {
	boom := errors.New("disk on fire")
	store := new(mockStore)
	store.On("List", mock.Anything, "blog").Return(nil, boom)
	store.On("Stat", mock.Anything, "blog", "a.png").Return(storage.Object{}, boom)
	store.On("Delete", mock.Anything, "blog", "a.png").Return(boom)
	store.On("EnsureDir", mock.Anything, "avatars").Return(boom)
	svc := NewService(store, Options{})
	ctx := context.Background()

	_, err := svc.List(ctx, "blog")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Rename(ctx, "blog", "a.png", "b.png")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrFileNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "blog", "a.png"), boom)

	in := pngInput(1)
	in.Type = "avatar"
	_, err = svc.Upload(ctx, in)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsValidation(err))

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Move", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRenameLosingRaceReportsNotFound(t *testing.T) {
	store := new(mockStore)
	store.On("Stat", mock.Anything, "blog", "a.png").Return(storage.Object{Name: "a.png"}, nil)
	store.On("Stat", mock.Anything, "blog", "b.png").Return(storage.Object{}, storage.ErrNotExist)
	store.On("Move", mock.Anything, "blog", "a.png", "b.png").Return(storage.ErrNotExist)
	svc := NewService(store, Options{})

	_, err := svc.Rename(context.Background(), "blog", "a.png", "b.png")
	assert.ErrorIs(t, err, ErrFileNotFound)
	store.AssertExpectations(t)
}

func TestRenameOntoDirectoryConflicts(t *testing.T) {
	svc, root := newTestService(t)
	dir := filepath.Join(root, "blog")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gallery"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("aaa"), 0o644))

	_, err := svc.Rename(context.Background(), "blog", "a.png", "gallery")
	assert.ErrorIs(t, err, ErrFileExists)
	assert.FileExists(t, filepath.Join(dir, "a.png"))
}

func TestDeleteDirectoryIsNotFound(t *testing.T) {
	svc, root := newTestService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog", "sub"), 0o755))

	assert.ErrorIs(t, svc.Delete(context.Background(), "blog", "sub"), ErrFileNotFound)
	assert.DirExists(t, filepath.Join(root, "blog", "sub"))
}
