package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

type fileRepo struct{ s *Store }

func (r *fileRepo) Create(_ context.Context, f models.FileRecord) (*models.FileRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = s.tick()
	s.files[f.ID] = f
	return &f, nil
}

func (r *fileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.FileRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *fileRepo) ListByTeam(_ context.Context, teamID uuid.UUID, offset, limit int) ([]models.FileWithUploader, int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.FileRecord, 0)
	for _, f := range s.files {
		if f.TeamID == teamID {
			all = append(all, f)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := make([]models.FileWithUploader, 0, limit)
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, models.FileWithUploader{FileRecord: all[i], Uploader: s.profiles[all[i].UploadedBy]})
	}
	return out, len(all), nil
}

func (r *fileRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.files, id)
	return nil
}
