package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

type profileRepo struct{ s *Store }

func (r *profileRepo) Ensure(_ context.Context, id uuid.UUID, email string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; ok {
		return nil
	}
	now := s.tick()
	s.profiles[id] = models.Profile{
		ID:        id,
		Email:     email,
		Status:    models.StatusOffline,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *profileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *profileRepo) GetMany(_ context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Profile, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *profileRepo) Update(_ context.Context, id uuid.UUID, patch models.ProfileUpdate) (*models.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, nil
	}
	if patch.DisplayName != nil {
		p.DisplayName = ptr(*patch.DisplayName)
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = ptr(*patch.AvatarURL)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.UpdatedAt = s.tick()
	s.profiles[id] = p
	return &p, nil
}
