package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
)

// Интеграционные тесты для пакета redis:
// — поднимают реальный Redis через testcontainers-go (образ redis:7-alpine);
// — проверяют Get/Set/Delete и изоляцию по префиксу.
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/redis -v -race -count=1

func startRedis(t *testing.T) (string, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port()), func() {
		_ = c.Terminate(context.Background())
	}
}

func TestNew_BadURL(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "not-a-url://", "")
	require.Error(t, err)
}

func TestStore_Integration(t *testing.T) {
	url, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()

	a, err := New(ctx, url, "a:")
	require.NoError(t, err)
	defer a.Close()

	b, err := New(ctx, url, "b:")
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Get(ctx, storage.KeyRole)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, a.Set(ctx, storage.KeyRole, "ADMIN"))
	require.NoError(t, a.Set(ctx, storage.KeyLoggedIn, "true"))

	v, err := a.Get(ctx, storage.KeyRole)
	require.NoError(t, err)
	require.Equal(t, "ADMIN", v)

	// другой префикс — другое состояние.
	_, err = b.Get(ctx, storage.KeyRole)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, a.Delete(ctx, storage.SessionKeys...))
	_, err = a.Get(ctx, storage.KeyLoggedIn)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, a.Delete(ctx))
}
