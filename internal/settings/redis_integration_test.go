package settings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisBackendWithContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a redis container")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr, cleanup := startRedis(ctx, t)
	defer cleanup()

	first, err := OpenRedis(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer first.Close()
	second, err := OpenRedis(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer second.Close()

	observer := NewStore(first, DefaultKey)
	require.NoError(t, observer.Load(ctx))
	assert.False(t, observer.IsConfigured())

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	changes, err := observer.Watch(watchCtx)
	require.NoError(t, err)

	want := Settings{PanelURL: "https://panel.example", ClientAPIKey: "ptlc_abc"}
	require.NoError(t, NewStore(second, DefaultKey).Save(ctx, want))

	select {
	case <-changes:
	case <-time.After(10 * time.Second):
		t.Fatal("expected change notification")
	}
	require.NoError(t, observer.Load(ctx))
	assert.Equal(t, want, observer.Settings())
}

func startRedis(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(1 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("get mapped port: %v", err)
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(context.Background())
	}
}
