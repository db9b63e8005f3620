package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBrokerFiltering(t *testing.T) {
	b := NewBroker(zaptest.NewLogger(t))
	ctx := context.Background()

	ch := uuid.New()
	sub, err := b.Subscribe(ctx, ConversationFilters(models.ChannelConversation(ch))...)
	require.NoError(t, err)
	defer sub.Close()

	other := uuid.New()
	b.Publish(ChangeEvent{Kind: KindInsert, Table: TableMessages, ID: uuid.New(), ChannelID: &other})
	want := ChangeEvent{Kind: KindInsert, Table: TableMessages, ID: uuid.New(), ChannelID: &ch}
	b.Publish(want)
	b.Publish(ChangeEvent{Kind: KindInsert, Table: TableNotifications, ID: uuid.New(), ChannelID: &ch})

	select {
	case got := <-sub.C():
		assert.Equal(t, want.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
	select {
	case got := <-sub.C():
		t.Fatalf("unexpected event %+v", got)
	default:
	}
}

func TestBrokerCloseAndContext(t *testing.T) {
	b := NewBroker(zaptest.NewLogger(t))

	sub, err := b.Subscribe(context.Background(), Filter{Table: TableMessages})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.Len())
	_, open := <-sub.C()
	assert.False(t, open)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = b.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	cancel()
	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, err = b.Subscribe(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBrokerSubscribeRacesCancel(t *testing.T) {
	b := NewBroker(zaptest.NewLogger(t))
	ev := ChangeEvent{Kind: KindInsert, Table: TableMessages, ID: uuid.New()}

	for range 2000 {
		ctx, cancel := context.WithCancel(context.Background())
		go cancel()
		sub, err := b.Subscribe(ctx, Filter{Table: TableMessages})
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
			continue
		}
		b.Publish(ev)
		<-ctx.Done()
		require.Eventually(t, func() bool {
			for {
				select {
				case _, open := <-sub.C():
					if !open {
						return true
					}
				default:
					return false
				}
			}
		}, time.Second, time.Millisecond)
	}
	assert.Equal(t, 0, b.Len())
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker(zaptest.NewLogger(t))
	sub, err := b.Subscribe(context.Background(), Filter{Table: TablePresence})
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < subscriptionBuffer+10; i++ {
		b.Publish(ChangeEvent{Kind: KindUpdate, Table: TablePresence, ID: uuid.New()})
	}
	assert.Len(t, sub.C(), subscriptionBuffer)
}

func TestFilterMatches(t *testing.T) {
	u := uuid.New()
	f := Filter{Table: TableNotifications, UserID: &u}

	assert.True(t, f.Matches(ChangeEvent{Table: TableNotifications, UserID: &u}))
	assert.False(t, f.Matches(ChangeEvent{Table: TableNotifications}))
	other := uuid.New()
	assert.False(t, f.Matches(ChangeEvent{Table: TableNotifications, UserID: &other}))
	assert.True(t, Filter{}.Matches(ChangeEvent{Table: TablePresence}))
}

func TestDecodeEvent(t *testing.T) {
	id := uuid.New()
	ch := uuid.New()
	ev, err := DecodeEvent([]byte(`{"kind":"insert","table":"messages","id":"` + id.String() + `","channel_id":"` + ch.String() + `"}`))
	require.NoError(t, err)
	assert.Equal(t, KindInsert, ev.Kind)
	assert.Equal(t, id, ev.ID)
	require.NotNil(t, ev.ChannelID)
	assert.Equal(t, ch, *ev.ChannelID)

	_, err = DecodeEvent([]byte(`{"id":"` + id.String() + `"}`))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}
