package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
)

type reactionRepo struct{ s *Store }

// reactionEvent carries the container of the reacted message so that
// conversation subscriptions can filter on it. Callers hold s.mu.
func (s *Store) reactionEvent(kind realtime.Kind, rx models.Reaction) realtime.ChangeEvent {
	ev := realtime.ChangeEvent{
		Kind:      kind,
		Table:     realtime.TableReactions,
		ID:        rx.ID,
		UserID:    ptr(rx.UserID),
		MessageID: ptr(rx.MessageID),
	}
	if m, ok := s.messages[rx.MessageID]; ok {
		ev.ChannelID = m.ChannelID
		ev.DMID = m.DMID
	}
	return ev
}

func (r *reactionRepo) Find(_ context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rx := range r.s.reactions {
		if rx.MessageID == messageID && rx.UserID == userID && rx.Emoji == emoji {
			return &rx, nil
		}
	}
	return nil, nil
}

func (r *reactionRepo) Add(_ context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error) {
	s := r.s
	s.mu.Lock()
	if _, ok := s.messages[messageID]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("insert reaction: message %s does not exist", messageID)
	}
	for _, rx := range s.reactions {
		if rx.MessageID == messageID && rx.UserID == userID && rx.Emoji == emoji {
			s.mu.Unlock()
			return nil, fmt.Errorf("insert reaction: %w", repository.ErrDuplicate)
		}
	}
	rx := models.Reaction{ID: uuid.New(), MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: s.tick()}
	s.reactions[rx.ID] = rx
	ev := s.reactionEvent(realtime.KindInsert, rx)
	s.mu.Unlock()

	s.emit([]realtime.ChangeEvent{ev})
	return &rx, nil
}

func (r *reactionRepo) Remove(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	rx, ok := s.reactions[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.reactions, id)
	ev := s.reactionEvent(realtime.KindDelete, rx)
	s.mu.Unlock()

	s.emit([]realtime.ChangeEvent{ev})
	return nil
}
