package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type FileStore struct {
	pool *pgxpool.Pool
}

func NewFileStore(pool *pgxpool.Pool) *FileStore {
	return &FileStore{pool: pool}
}

const fileColumns = `id, name, size, type, url, uploaded_by, team_id, created_at`

func fileFields(f *models.FileRecord) []any {
	return []any{&f.ID, &f.Name, &f.Size, &f.Type, &f.URL, &f.UploadedBy, &f.TeamID, &f.CreatedAt}
}

func (s *FileStore) Create(ctx context.Context, f models.FileRecord) (*models.FileRecord, error) {
	query := `
		INSERT INTO files (name, size, type, url, uploaded_by, team_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + fileColumns

	var out models.FileRecord
	if err := s.pool.QueryRow(ctx, query, f.Name, f.Size, f.Type, f.URL, f.UploadedBy, f.TeamID).Scan(fileFields(&out)...); err != nil {
		return nil, wrap("insert file", err)
	}
	return &out, nil
}

func (s *FileStore) GetByID(ctx context.Context, id uuid.UUID) (*models.FileRecord, error) {
	var f models.FileRecord
	if err := s.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id).Scan(fileFields(&f)...); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

func (s *FileStore) ListByTeam(ctx context.Context, teamID uuid.UUID, offset, limit int) ([]models.FileWithUploader, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM files WHERE team_id = $1`, teamID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}

	query := `
		SELECT f.id, f.name, f.size, f.type, f.url, f.uploaded_by, f.team_id, f.created_at,
		       p.id, p.email, p.display_name, p.avatar_url, p.status, p.last_seen, p.created_at, p.updated_at
		FROM files f
		JOIN profiles p ON p.id = f.uploaded_by
		WHERE f.team_id = $1
		ORDER BY f.created_at DESC, f.id DESC
		OFFSET $2 LIMIT $3`

	rows, err := s.pool.Query(ctx, query, teamID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]models.FileWithUploader, 0)
	for rows.Next() {
		var f models.FileWithUploader
		p := &f.Uploader
		fields := append(fileFields(&f.FileRecord),
			&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Status, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt)
		if err := rows.Scan(fields...); err != nil {
			return nil, 0, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate files: %w", err)
	}
	return files, total, nil
}

func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
