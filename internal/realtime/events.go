package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Tables that emit change events.
const (
	TableMessages      = "messages"
	TableReactions     = "message_reactions"
	TablePresence      = "user_presence"
	TableNotifications = "notifications"
)

// ChangeEvent is one row-level change. Only the columns needed to route
// and refetch are carried; Record holds the full row for tables whose
// consumers merge it directly (notifications).
type ChangeEvent struct {
	Kind      Kind            `json:"kind"`
	Table     string          `json:"table"`
	ID        uuid.UUID       `json:"id"`
	ChannelID *uuid.UUID      `json:"channel_id,omitempty"`
	DMID      *uuid.UUID      `json:"dm_id,omitempty"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	MessageID *uuid.UUID      `json:"message_id,omitempty"`
	ParentID  *uuid.UUID      `json:"parent_id,omitempty"`
	TeamID    *uuid.UUID      `json:"team_id,omitempty"`
	Status    models.Status   `json:"status,omitempty"`
	LastSeen  *time.Time      `json:"last_seen,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
}

// Filter selects events of one table, optionally narrowed to one channel,
// direct message or user. Unset fields match anything.
type Filter struct {
	Table     string
	ChannelID *uuid.UUID
	DMID      *uuid.UUID
	UserID    *uuid.UUID
}

func (f Filter) Matches(ev ChangeEvent) bool {
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.ChannelID != nil && (ev.ChannelID == nil || *ev.ChannelID != *f.ChannelID) {
		return false
	}
	if f.DMID != nil && (ev.DMID == nil || *ev.DMID != *f.DMID) {
		return false
	}
	if f.UserID != nil && (ev.UserID == nil || *ev.UserID != *f.UserID) {
		return false
	}
	return true
}

// ConversationFilters are the filters that keep one conversation's
// message list current: its messages and the reactions on them.
func ConversationFilters(conv models.Conversation) []Filter {
	id := conv.ID
	if conv.Kind == models.ConversationDM {
		return []Filter{
			{Table: TableMessages, DMID: &id},
			{Table: TableReactions, DMID: &id},
		}
	}
	return []Filter{
		{Table: TableMessages, ChannelID: &id},
		{Table: TableReactions, ChannelID: &id},
	}
}
