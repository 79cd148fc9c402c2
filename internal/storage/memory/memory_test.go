package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
)

func TestStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "role")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "role", "ADMIN"))
	v, err := s.Get(ctx, "role")
	require.NoError(t, err)
	require.Equal(t, "ADMIN", v)

	require.NoError(t, s.Delete(ctx, "role", "missing"))
	_, err = s.Get(ctx, "role")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ClosedAndCanceled(t *testing.T) {
	t.Parallel()

	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)

	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Set(context.Background(), "k", "v"), storage.ErrClosed)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "theme", "dark")
			_, _ = s.Get(ctx, "theme")
			_ = s.Delete(ctx, "theme")
		}()
	}
	wg.Wait()
}
