package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   Status
		lastSeen time.Time
		want     Status
	}{
		{"fresh online", StatusOnline, now.Add(-time.Minute), StatusOnline},
		{"online at the edge", StatusOnline, now.Add(-5 * time.Minute), StatusOnline},
		{"stale online", StatusOnline, now.Add(-6 * time.Minute), StatusOffline},
		{"stale busy kept", StatusBusy, now.Add(-time.Hour), StatusBusy},
		{"away kept", StatusAway, now.Add(-10 * time.Minute), StatusAway},
		{"empty", "", now, StatusOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := UserPresence{Status: tt.status, LastSeen: tt.lastSeen}
			assert.Equal(t, tt.want, p.EffectiveStatus(now))
			assert.Equal(t, tt.want == StatusOnline, p.IsOnline(now))
		})
	}
}

func TestMessageInputConversation(t *testing.T) {
	ch, dm := uuid.New(), uuid.New()

	conv, ok := MessageInput{ChannelID: &ch}.Conversation()
	assert.True(t, ok)
	assert.Equal(t, ChannelConversation(ch), conv)

	conv, ok = MessageInput{DMID: &dm}.Conversation()
	assert.True(t, ok)
	assert.Equal(t, DMConversation(dm), conv)

	_, ok = MessageInput{ChannelID: &ch, DMID: &dm}.Conversation()
	assert.False(t, ok)

	_, ok = MessageInput{}.Conversation()
	assert.False(t, ok)
}

func TestCanonicalPair(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	x1, y1 := CanonicalPair(a, b)
	x2, y2 := CanonicalPair(b, a)
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
	assert.True(t, x1.String() < y1.String())

	dm := DirectMessage{User1ID: x1, User2ID: y1}
	assert.True(t, dm.HasParticipant(a))
	assert.Equal(t, b, dm.Other(a))
	assert.False(t, dm.HasParticipant(uuid.New()))
}

func TestCursorBefore(t *testing.T) {
	at := time.Now()
	c := Cursor{CreatedAt: at, ID: uuid.MustParse("00000000-0000-0000-0000-000000000005")}

	assert.True(t, c.Before(Message{CreatedAt: at.Add(-time.Second)}))
	assert.False(t, c.Before(Message{CreatedAt: at.Add(time.Second)}))
	assert.True(t, c.Before(Message{CreatedAt: at, ID: uuid.MustParse("00000000-0000-0000-0000-000000000001")}))
	assert.False(t, c.Before(Message{CreatedAt: at, ID: c.ID}))
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: 50, Total: 120, HasMore: true}, NewPagination(1, 50, 120))
	assert.True(t, NewPagination(2, 50, 120).HasMore)
	assert.False(t, NewPagination(3, 50, 120).HasMore)
	assert.False(t, NewPagination(1, 50, 0).HasMore)
}

func TestNotificationLink(t *testing.T) {
	team, ch, dm := uuid.New(), uuid.New(), uuid.New()

	assert.Equal(t, "/dm/"+dm.String(), Notification{Data: NotificationData{DMID: &dm}}.Link())
	assert.Equal(t, "/team/"+team.String()+"/channel/"+ch.String(),
		Notification{Data: NotificationData{TeamID: &team, ChannelID: &ch}}.Link())
	assert.Equal(t, "/channel/"+ch.String(), Notification{Data: NotificationData{ChannelID: &ch}}.Link())
	assert.Empty(t, Notification{}.Link())
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		0:          "0 Bytes",
		512:        "512 Bytes",
		1024:       "1 KB",
		1536:       "1.5 KB",
		10 << 20:   "10 MB",
		3 << 30:    "3 GB",
		5000 << 30: "5000 GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFileSize(in), "bytes=%d", in)
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryImage, CategoryOf("image/png"))
	assert.Equal(t, CategoryVideo, CategoryOf("video/mp4"))
	assert.Equal(t, CategoryAudio, CategoryOf("audio/ogg"))
	assert.Equal(t, CategoryDocument, CategoryOf("application/pdf"))
	assert.Equal(t, CategoryDocument, CategoryOf("text/plain"))
	assert.Equal(t, CategoryArchive, CategoryOf("application/zip"))
	assert.Equal(t, CategoryOther, CategoryOf("application/octet-stream"))
	assert.Equal(t, MessageImage, MessageTypeFor("image/jpeg"))
	assert.Equal(t, MessageFile, MessageTypeFor("application/pdf"))
}

func TestRoleAndStatus(t *testing.T) {
	assert.True(t, RoleOwner.CanManage())
	assert.True(t, RoleAdmin.CanManage())
	assert.False(t, RoleMember.CanManage())

	assert.True(t, StatusBusy.Valid())
	assert.False(t, Status("sleeping").Valid())
}
