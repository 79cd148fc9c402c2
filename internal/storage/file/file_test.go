package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
)

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, storage.KeyRole, "USER"))
	require.NoError(t, s.Set(ctx, storage.KeyTheme, "dark"))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s2, err := New(path)
	require.NoError(t, err)

	v, err := s2.Get(ctx, storage.KeyRole)
	require.NoError(t, err)
	require.Equal(t, "USER", v)

	require.NoError(t, s2.Delete(ctx, storage.KeyRole))

	s3, err := New(path)
	require.NoError(t, err)
	_, err = s3.Get(ctx, storage.KeyRole)
	require.ErrorIs(t, err, storage.ErrNotFound)

	theme, err := s3.Get(ctx, storage.KeyTheme)
	require.NoError(t, err)
	require.Equal(t, "dark", theme)
}

func TestNew_MissingAndEmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s, err := New(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = New(empty)
	require.NoError(t, err)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o600))
	_, err = New(broken)
	require.ErrorContains(t, err, "decode")
}

func TestSet_FailedFlushRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "state.json")

	s, err := New(path)
	require.NoError(t, err)

	require.Error(t, s.Set(ctx, "k", "v"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()

	s, err := New(filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Set(context.Background(), "k", "v"), storage.ErrClosed)
	_, err = s.Get(context.Background(), "k")
	require.ErrorIs(t, err, storage.ErrClosed)
}
