package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

// Message belongs to exactly one container: a channel or a direct message.
// ParentID is set on thread replies; ThreadCount is maintained on the parent.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type"`
	AuthorID    uuid.UUID   `json:"author_id"`
	ChannelID   *uuid.UUID  `json:"channel_id"`
	DMID        *uuid.UUID  `json:"dm_id"`
	ParentID    *uuid.UUID  `json:"parent_id"`
	FileURL     *string     `json:"file_url"`
	FileName    *string     `json:"file_name"`
	FileSize    *int64      `json:"file_size"`
	FileType    *string     `json:"file_type"`
	ThreadCount int         `json:"thread_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Conversation returns the container the message lives in.
func (m Message) Conversation() Conversation {
	if m.ChannelID != nil {
		return Conversation{Kind: ConversationChannel, ID: *m.ChannelID}
	}
	if m.DMID != nil {
		return Conversation{Kind: ConversationDM, ID: *m.DMID}
	}
	return Conversation{}
}

type Reaction struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type ReactionWithUser struct {
	Reaction
	User Profile `json:"user"`
}

// MessageWithAuthor is a message row with the relations the UI renders.
type MessageWithAuthor struct {
	Message
	Author    Profile            `json:"author"`
	Reactions []ReactionWithUser `json:"reactions"`
}

type ConversationKind string

const (
	ConversationChannel ConversationKind = "channel"
	ConversationDM      ConversationKind = "dm"
)

// Conversation identifies a message container.
type Conversation struct {
	Kind ConversationKind `json:"kind"`
	ID   uuid.UUID        `json:"id"`
}

func ChannelConversation(id uuid.UUID) Conversation {
	return Conversation{Kind: ConversationChannel, ID: id}
}

func DMConversation(id uuid.UUID) Conversation {
	return Conversation{Kind: ConversationDM, ID: id}
}

func (c Conversation) IsZero() bool {
	return c.ID == uuid.Nil
}

func (c Conversation) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.ID)
}

// MessageInput is the send form. Exactly one of ChannelID and DMID must be
// set; Content may be empty only when a file is attached.
type MessageInput struct {
	Content   string      `json:"content" validate:"max=4000"`
	Type      MessageType `json:"type" validate:"omitempty,oneof=text file image"`
	ChannelID *uuid.UUID  `json:"channel_id"`
	DMID      *uuid.UUID  `json:"dm_id"`
	ParentID  *uuid.UUID  `json:"parent_id"`
	FileID    *uuid.UUID  `json:"file_id"`
}

// Conversation resolves the container, reporting false unless exactly one
// of ChannelID and DMID is set.
func (in MessageInput) Conversation() (Conversation, bool) {
	switch {
	case in.ChannelID != nil && in.DMID == nil:
		return ChannelConversation(*in.ChannelID), true
	case in.DMID != nil && in.ChannelID == nil:
		return DMConversation(*in.DMID), true
	default:
		return Conversation{}, false
	}
}

// Cursor is a keyset position: rows strictly older than (CreatedAt, ID).
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// Before reports whether the message sorts strictly before the cursor.
func (c Cursor) Before(m Message) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID.String() < c.ID.String()
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

func NewPagination(page, limit, total int) Pagination {
	return Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: page*limit < total,
	}
}

// SearchQuery narrows a full-text search. TeamID and ChannelID are optional.
type SearchQuery struct {
	Query     string     `json:"query" validate:"required,min=1,max=200"`
	TeamID    *uuid.UUID `json:"team_id"`
	ChannelID *uuid.UUID `json:"channel_id"`
	Limit     int        `json:"limit"`
}

type SearchResult struct {
	ID          uuid.UUID  `json:"id"`
	Content     string     `json:"content"`
	AuthorID    uuid.UUID  `json:"author_id"`
	ChannelID   *uuid.UUID `json:"channel_id"`
	DMID        *uuid.UUID `json:"dm_id"`
	CreatedAt   time.Time  `json:"created_at"`
	AuthorName  string     `json:"author_name"`
	ChannelName *string    `json:"channel_name"`
}

// MessageLess orders messages oldest-first, breaking ties by id.
func MessageLess(a, b Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.String() < b.ID.String()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
