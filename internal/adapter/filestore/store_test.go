package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "asteroids_raw.json", []byte(`{"a":1}`)))
	got, err := s.Get(ctx, "asteroids_raw.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Put(ctx, "asteroids_raw.json", []byte(`{"a":2}`)))
	got, err = s.Get(ctx, "asteroids_raw.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got), "put replaces the whole artifact")
}

func TestGet_NotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestPut_LeavesNoTemporaries(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, s.Put(context.Background(), "time_series_data.csv", []byte("date,count\n")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "time_series_data.csv", entries[0].Name())
}

func TestPut_FailureKeepsPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "asteroids_clean.csv", []byte("old")))

	// A directory in the way of the rename makes the write fail after the
	// temporary file is complete.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "blocked.csv"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked.csv", "x"), []byte("x"), 0o644))
	err = s.Put(ctx, "blocked.csv", []byte("new"))
	assert.ErrorIs(t, err, domain.ErrPersistence)

	got, err := s.Get(ctx, "asteroids_clean.csv")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"asteroids_clean.csv"}, names, "failed temporaries are removed")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "b.csv", []byte("b")))
	require.NoError(t, s.Put(ctx, "a.json", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.csv"}, names)
}

func TestInvalidNames(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "../escape.csv", "dir/file.csv", ".hidden"} {
		assert.ErrorIs(t, s.Put(ctx, name, nil), domain.ErrPersistence, "name %q", name)
		_, err := s.Get(ctx, name)
		assert.ErrorIs(t, err, domain.ErrPersistence, "name %q", name)
	}
}
