package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notificationEvent(t *testing.T, kind Kind, n models.Notification) ChangeEvent {
	t.Helper()
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	return ChangeEvent{Kind: kind, Table: TableNotifications, ID: n.ID, UserID: &n.UserID, Record: raw}
}

func TestNotificationList(t *testing.T) {
	user := uuid.New()
	older := models.Notification{ID: uuid.New(), UserID: user, Type: models.NotificationDM, Title: "older", CreatedAt: epoch}
	l := NewNotificationList([]models.Notification{older})
	assert.Equal(t, 1, l.UnreadCount())

	newer := models.Notification{ID: uuid.New(), UserID: user, Type: models.NotificationMention, Title: "newer", CreatedAt: epoch.Add(1)}
	changed, err := l.Apply(notificationEvent(t, KindInsert, newer))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = l.Apply(notificationEvent(t, KindInsert, newer))
	require.NoError(t, err)
	assert.False(t, changed, "duplicate insert")

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].Title)
	assert.Equal(t, 2, l.UnreadCount())

	read := newer
	read.Read = true
	changed, err = l.Apply(notificationEvent(t, KindUpdate, read))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, l.UnreadCount())

	changed, err = l.Apply(ChangeEvent{Kind: KindDelete, Table: TableNotifications, ID: older.ID})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Zero(t, l.UnreadCount())

	changed, err = l.Apply(ChangeEvent{Kind: KindDelete, Table: TableNotifications, ID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = l.Apply(ChangeEvent{Kind: KindInsert, Table: TableNotifications, Record: json.RawMessage(`{`)})
	assert.Error(t, err)
}
