package realtime

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageListIdempotentMerge(t *testing.T) {
	conv := models.ChannelConversation(uuid.New())
	author := uuid.New()
	a := newMessage(conv, author, epoch)
	b := newMessage(conv, author, epoch.Add(time.Second))
	c := newMessage(conv, author, epoch.Add(2*time.Second))

	l := NewMessageList()
	assert.True(t, l.Upsert(a))
	assert.True(t, l.Upsert(c))
	assert.False(t, l.Upsert(a), "duplicate insert must not add")

	// A late event for an older message still lands in order.
	assert.True(t, l.Upsert(b))
	if diff := cmp.Diff([]uuid.UUID{a.ID, b.ID, c.ID}, ids(l.Items())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	edited := b
	edited.Content = "edited"
	assert.True(t, l.Replace(edited))
	assert.Equal(t, "edited", l.Items()[1].Content)

	unknown := newMessage(conv, author, epoch)
	assert.False(t, l.Replace(unknown), "update of unknown id is a no-op")
	assert.False(t, l.Remove(unknown.ID), "delete of unknown id is a no-op")
	assert.Equal(t, 3, l.Len())

	assert.True(t, l.Remove(b.ID))
	assert.False(t, l.Remove(b.ID))
	assert.Equal(t, []uuid.UUID{a.ID, c.ID}, ids(l.Items()))
}

func TestMessageListPrependOlder(t *testing.T) {
	conv := models.ChannelConversation(uuid.New())
	author := uuid.New()
	old1 := newMessage(conv, author, epoch)
	old2 := newMessage(conv, author, epoch.Add(time.Second))
	cur := newMessage(conv, author, epoch.Add(time.Minute))

	l := NewMessageList(cur, old2)
	added := l.PrependOlder([]models.MessageWithAuthor{old2, old1})
	assert.Equal(t, 1, added)
	assert.Equal(t, []uuid.UUID{old1.ID, old2.ID, cur.ID}, ids(l.Items()))

	oldest := l.Oldest()
	require.NotNil(t, oldest)
	assert.Equal(t, old1.ID, oldest.ID)
	assert.True(t, oldest.CreatedAt.Equal(old1.CreatedAt))

	l.Reset()
	assert.Nil(t, l.Oldest())
	assert.Empty(t, l.Items())
}

func TestMessageListItemsIsCopy(t *testing.T) {
	conv := models.DMConversation(uuid.New())
	m := newMessage(conv, uuid.New(), epoch)
	l := NewMessageList(m)

	items := l.Items()
	items[0].Content = "mutated"
	assert.Equal(t, "hello", l.Items()[0].Content)
}
