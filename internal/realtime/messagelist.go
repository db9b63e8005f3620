package realtime

import (
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

// MessageList is an oldest-first list of messages unique by id. All
// mutations are idempotent so duplicate or late events are harmless. It is
// not safe for concurrent use.
type MessageList struct {
	items []models.MessageWithAuthor
}

func NewMessageList(items ...models.MessageWithAuthor) *MessageList {
	l := &MessageList{}
	for _, m := range items {
		l.Upsert(m)
	}
	return l
}

func (l *MessageList) Len() int {
	return len(l.items)
}

func (l *MessageList) indexOf(id uuid.UUID) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *MessageList) Contains(id uuid.UUID) bool {
	return l.indexOf(id) >= 0
}

// Upsert adds m in order, or refreshes it in place if it is already
// present. It reports whether m was added.
func (l *MessageList) Upsert(m models.MessageWithAuthor) bool {
	if i := l.indexOf(m.ID); i >= 0 {
		l.items[i] = m
		return false
	}
	l.insert(m)
	return true
}

// Replace refreshes an existing entry. An unknown id is a no-op.
func (l *MessageList) Replace(m models.MessageWithAuthor) bool {
	i := l.indexOf(m.ID)
	if i < 0 {
		return false
	}
	l.items[i] = m
	return true
}

// Remove drops the entry with id. An unknown id is a no-op.
func (l *MessageList) Remove(id uuid.UUID) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// PrependOlder merges a page of older messages and returns how many were
// new. Rows already present, for example because an insert event raced the
// page fetch, are skipped.
func (l *MessageList) PrependOlder(page []models.MessageWithAuthor) int {
	added := 0
	for _, m := range page {
		if l.indexOf(m.ID) >= 0 {
			continue
		}
		l.insert(m)
		added++
	}
	return added
}

// Oldest is the keyset cursor for the next older page, or nil when the
// list is empty.
func (l *MessageList) Oldest() *models.Cursor {
	if len(l.items) == 0 {
		return nil
	}
	m := l.items[0]
	return &models.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// Items returns a copy.
func (l *MessageList) Items() []models.MessageWithAuthor {
	out := make([]models.MessageWithAuthor, len(l.items))
	copy(out, l.items)
	return out
}

func (l *MessageList) Reset() {
	l.items = nil
}

// insert places m after the last entry that sorts before it. New messages
// almost always land at the tail, so the scan runs backwards.
func (l *MessageList) insert(m models.MessageWithAuthor) {
	i := len(l.items)
	for i > 0 && models.MessageLess(m.Message, l.items[i-1].Message) {
		i--
	}
	l.items = append(l.items, models.MessageWithAuthor{})
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = m
}
