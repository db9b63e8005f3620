package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
)

type notificationRepo struct{ s *Store }

func (r *notificationRepo) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Notification, 0)
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, userID, id uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		s.mu.Unlock()
		return false, nil
	}
	n.Read = true
	s.notifications[id] = n
	s.mu.Unlock()

	s.emit([]realtime.ChangeEvent{notificationEvent(realtime.KindUpdate, n)})
	return true, nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	var evs []realtime.ChangeEvent
	for id, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
			evs = append(evs, notificationEvent(realtime.KindUpdate, n))
		}
	}
	s.mu.Unlock()
	s.emit(evs)
	return nil
}

func (r *notificationRepo) Delete(_ context.Context, userID, id uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.notifications, id)
	s.mu.Unlock()

	s.emit([]realtime.ChangeEvent{notificationEvent(realtime.KindDelete, n)})
	return true, nil
}

func (r *notificationRepo) DeleteAll(_ context.Context, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	var evs []realtime.ChangeEvent
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
			evs = append(evs, notificationEvent(realtime.KindDelete, n))
		}
	}
	s.mu.Unlock()
	s.emit(evs)
	return nil
}
