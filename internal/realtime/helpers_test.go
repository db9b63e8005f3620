package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

var epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func newMessage(conv models.Conversation, author uuid.UUID, at time.Time) models.MessageWithAuthor {
	m := models.MessageWithAuthor{
		Message: models.Message{
			ID:        uuid.New(),
			Content:   "hello",
			Type:      models.MessageText,
			AuthorID:  author,
			CreatedAt: at,
			UpdatedAt: at,
		},
		Author:    models.Profile{ID: author},
		Reactions: []models.ReactionWithUser{},
	}
	id := conv.ID
	if conv.Kind == models.ConversationDM {
		m.DMID = &id
	} else {
		m.ChannelID = &id
	}
	return m
}

// fakeSource is an in-memory MessageSource. ListBefore for a conversation
// with a gate blocks until the gate is closed or the fetch is cancelled.
type fakeSource struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]models.MessageWithAuthor
	gates   map[uuid.UUID]chan struct{}
	started chan uuid.UUID
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rows:    make(map[uuid.UUID]models.MessageWithAuthor),
		gates:   make(map[uuid.UUID]chan struct{}),
		started: make(chan uuid.UUID, 16),
	}
}

func (f *fakeSource) put(ms ...models.MessageWithAuthor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range ms {
		f.rows[m.ID] = m
	}
}

func (f *fakeSource) del(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
}

func (f *fakeSource) gate(convID uuid.UUID) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[convID] = g
	return g
}

func (f *fakeSource) GetByID(_ context.Context, id uuid.UUID) (*models.MessageWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeSource) ListBefore(ctx context.Context, conv models.Conversation, cursor *models.Cursor, limit int) ([]models.MessageWithAuthor, error) {
	select {
	case f.started <- conv.ID:
	default:
	}

	f.mu.Lock()
	g := f.gates[conv.ID]
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MessageWithAuthor, 0)
	for _, m := range f.rows {
		if m.ParentID != nil || m.Conversation() != conv {
			continue
		}
		if cursor != nil && !cursor.Before(m.Message) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return models.MessageLess(out[j].Message, out[i].Message) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func ids(ms []models.MessageWithAuthor) []uuid.UUID {
	out := make([]uuid.UUID, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
