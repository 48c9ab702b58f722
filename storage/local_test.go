package storage

import (
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
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func names(objs []Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Name)
	}
	sort.Strings(out)
	return out
}

func TestCleanDir(t *testing.T) {
	cases := map[string]string{
		"":               "",
		".":              "",
		"blog":           "blog",
		"products/":      "products",
		"a/./b":          "a/b",
		"a/../b":         "b",
		`win\style`:      "win/style",
		"  avatars  ":    "avatars",
		"nested/dir/two": "nested/dir/two",
	}
	for in, want := range cases {
		got, err := CleanDir(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"/etc", "..", "../x", "a/../../x", `..\..\etc`} {
		_, err := CleanDir(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("a.png"))
	assert.True(t, ValidName(".hidden"))
	for _, bad := range []string{"", ".", "..", "a/b.png", `a\b.png`, "nul\x00.png"} {
		assert.False(t, ValidName(bad), bad)
	}
}

func TestLocalStoreSaveAndList(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDir(ctx, "blog"))
	n, err := s.Save(ctx, "blog", "a.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	objs, err := s.List(ctx, "blog")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "a.png", objs[0].Name)
	assert.Equal(t, int64(9), objs[0].Size)
	assert.False(t, objs[0].ModifiedAt.IsZero())
	assert.False(t, objs[0].CreatedAt.IsZero())

	b, err := os.ReadFile(filepath.Join(s.Root(), "blog", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))
}

type failingReader struct{ sent bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("client went away")
}

func TestLocalStoreSaveFailureLeavesNothing(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureDir(ctx, "blog"))

	_, err := s.Save(ctx, "blog", "a.png", &failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "blog"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStoreListMissingDirIsEmpty(t *testing.T) {
	s := newLocal(t)
	objs, err := s.List(context.Background(), "avatars")
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)
}

func TestLocalStoreListSkipsDirsAndPartials(t *testing.T) {
	s := newLocal(t)
	dir := filepath.Join(s.Root(), "blog")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".b.png-123.part"), []byte("x"), 0o644))

	objs, err := s.List(context.Background(), "blog")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, names(objs))
}

func TestLocalStoreStatMoveDelete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureDir(ctx, "blog"))
	_, err := s.Save(ctx, "blog", "a.png", strings.NewReader("abc"))
	require.NoError(t, err)

	_, err = s.Stat(ctx, "blog", "missing.png")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, s.Move(ctx, "blog", "a.png", "b.png"))
	_, err = s.Stat(ctx, "blog", "a.png")
	assert.ErrorIs(t, err, ErrNotExist)
	obj, err := s.Stat(ctx, "blog", "b.png")
	require.NoError(t, err)
	assert.Equal(t, int64(3), obj.Size)

	assert.ErrorIs(t, s.Move(ctx, "blog", "a.png", "c.png"), ErrNotExist)

	require.NoError(t, s.Delete(ctx, "blog", "b.png"))
	assert.ErrorIs(t, s.Delete(ctx, "blog", "b.png"), ErrNotExist)
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.EnsureDir(ctx, "../outside"), ErrInvalidKey)
	_, err := s.Save(ctx, "blog", "../x.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = s.List(ctx, "/etc")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, _, err = s.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStoreOpen(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureDir(ctx, "products"))
	_, err := s.Save(ctx, "products", "p.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)

	rc, obj, err := s.Open(ctx, "products/p.jpg")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(b))
	assert.Equal(t, "p.jpg", obj.Name)

	_, _, err = s.Open(ctx, "products")
	assert.ErrorIs(t, err, ErrNotExist)
	_, _, err = s.Open(ctx, "products/none.jpg")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalStoreSweepPartials(t *testing.T) {
	s := newLocal(t)
	dir := filepath.Join(s.Root(), "blog")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	stale := filepath.Join(dir, ".old.png-1.part")
	fresh := filepath.Join(dir, ".new.png-2.part")
	kept := filepath.Join(dir, "done.png")
	for _, p := range []string{stale, fresh, kept} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(kept, old, old))

	removed, err := s.SweepPartials(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, kept)
}

func TestLocalStoreMoveNeverReplaces(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	dir := filepath.Join(s.Root(), "blog")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("b"), 0o644))

	assert.ErrorIs(t, s.Move(ctx, "blog", "a.png", "b.png"), ErrExist)
	assert.ErrorIs(t, s.Move(ctx, "blog", "a.png", "sub"), ErrExist)

	data, err := os.ReadFile(filepath.Join(dir, "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	assert.FileExists(t, filepath.Join(dir, "a.png"))
}

func TestLocalStoreDeleteOnlyRemovesFiles(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	dir := filepath.Join(s.Root(), "blog")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "full"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "full", "x.png"), []byte("x"), 0o644))

	assert.ErrorIs(t, s.Delete(ctx, "blog", "empty"), ErrNotExist)
	assert.ErrorIs(t, s.Delete(ctx, "blog", "full"), ErrNotExist)
	assert.DirExists(t, filepath.Join(dir, "empty"))
	assert.FileExists(t, filepath.Join(dir, "full", "x.png"))
}
