package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev Event) error {
	return m.Called(ctx, ev).Error(0)
}

func TestMultiJoinsErrors(t *testing.T) {
	ctx := context.Background()
	ev := Event{Action: MessageSent, ActorID: uuid.New(), Path: "/dm/x"}
	boom := errors.New("boom")

	ok := &mockPublisher{}
	ok.On("Publish", ctx, ev).Return(nil).Once()
	bad := &mockPublisher{}
	bad.On("Publish", ctx, ev).Return(boom).Once()

	err := Multi{ok, bad}.Publish(ctx, ev)
	assert.ErrorIs(t, err, boom)
	ok.AssertExpectations(t)
	bad.AssertExpectations(t)
}

func TestLoggedSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bad := &mockPublisher{}
	bad.On("Publish", mock.Anything, mock.Anything).Return(errors.New("down"))

	err := Logged{Next: bad, Logger: zap.New(core)}.Publish(context.Background(), Event{Action: TeamCreated})
	assert.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to publish event", logs.All()[0].Message)
}

func TestHubFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	a, err := h.Subscribe(ctx)
	require.NoError(t, err)
	b, err := h.Subscribe(ctx)
	require.NoError(t, err)

	ev := Event{Action: ChannelCreated, ActorID: uuid.New()}
	require.NoError(t, h.Publish(ctx, ev))
	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-a
		return !open
	}, time.Second, 10*time.Millisecond)
}

type fakeWriter struct {
	mu   sync.Mutex
	err  error
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaKeysByActor(t *testing.T) {
	w := &fakeWriter{}
	k := newKafka(w, zaptest.NewLogger(t))
	actor := uuid.New()

	require.NoError(t, k.Publish(context.Background(), Event{Action: MessageSent, ActorID: actor}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, actor.String(), string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"action":"message.sent"`)
}

func TestKafkaBreakerOpens(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	k := newKafka(w, zaptest.NewLogger(t))
	ctx := context.Background()

	for range 5 {
		assert.Error(t, k.Publish(ctx, Event{Action: MessageSent}))
	}
	assert.Equal(t, gobreaker.StateOpen, k.State())

	err := k.Publish(ctx, Event{Action: MessageSent})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
