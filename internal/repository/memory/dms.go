package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
)

type dmRepo struct{ s *Store }

func (r *dmRepo) CreateOrGet(_ context.Context, a, b uuid.UUID) (*models.DirectMessage, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u1, u2 := models.CanonicalPair(a, b)
	for _, dm := range s.dms {
		if dm.User1ID == u1 && dm.User2ID == u2 {
			return &dm, nil
		}
	}
	dm := models.DirectMessage{ID: uuid.New(), User1ID: u1, User2ID: u2, CreatedAt: s.tick()}
	s.dms[dm.ID] = dm
	return &dm, nil
}

func (r *dmRepo) GetByID(_ context.Context, id uuid.UUID) (*models.DirectMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	dm, ok := r.s.dms[id]
	if !ok {
		return nil, nil
	}
	return &dm, nil
}

func (r *dmRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]models.DirectMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.DirectMessage, 0)
	for _, dm := range r.s.dms {
		if dm.HasParticipant(userID) {
			out = append(out, dm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *dmRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	delete(s.dms, id)
	var evs []realtime.ChangeEvent
	for _, m := range s.messages {
		if m.DMID != nil && *m.DMID == id && m.ParentID == nil {
			evs = append(evs, s.deleteMessageLocked(m.ID)...)
		}
	}
	s.mu.Unlock()
	s.emit(evs)
	return nil
}
