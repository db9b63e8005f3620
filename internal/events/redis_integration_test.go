//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	r := NewRedis(client, zaptest.NewLogger(t))
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := r.Subscribe(subCtx)
	require.NoError(t, err)

	ev := Event{Action: MessageSent, ActorID: uuid.New(), Path: "/dm/1", At: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, r.Publish(ctx, ev))

	select {
	case got := <-ch:
		assert.Equal(t, ev.Action, got.Action)
		assert.Equal(t, ev.ActorID, got.ActorID)
		assert.True(t, ev.At.Equal(got.At))
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}
