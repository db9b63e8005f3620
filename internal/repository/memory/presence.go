package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
)

type presenceRepo struct{ s *Store }

func (r *presenceRepo) Upsert(_ context.Context, userID uuid.UUID, status models.Status) (*models.UserPresence, error) {
	s := r.s
	s.mu.Lock()
	now := s.tick()
	p := models.UserPresence{UserID: userID, Status: status, LastSeen: now, UpdatedAt: now}
	s.presence[userID] = p
	if prof, ok := s.profiles[userID]; ok {
		prof.Status = status
		prof.LastSeen = now
		s.profiles[userID] = prof
	}
	s.mu.Unlock()

	s.emit([]realtime.ChangeEvent{{
		Kind:     realtime.KindUpdate,
		Table:    realtime.TablePresence,
		ID:       userID,
		UserID:   ptr(userID),
		Status:   status,
		LastSeen: ptr(now),
	}})
	return &p, nil
}

func (r *presenceRepo) Get(_ context.Context, userIDs []uuid.UUID) ([]models.UserPresence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.UserPresence, 0, len(userIDs))
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if p, ok := r.s.presence[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *presenceRepo) List(_ context.Context) ([]models.UserPresence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.UserPresence, 0, len(r.s.presence))
	for _, p := range r.s.presence {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

// SetPresence writes a presence row as-is, without stamping the clock.
// It exists for seeding stale rows.
func (s *Store) SetPresence(p models.UserPresence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[p.UserID] = p
}
