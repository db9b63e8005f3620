package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `id, email, display_name, avatar_url, status, last_seen, created_at, updated_at`

func scanProfile(row pgx.Row, p *models.Profile) error {
	return row.Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Status,
		&p.LastSeen,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// Ensure is idempotent: an existing profile is left untouched.
func (s *ProfileStore) Ensure(ctx context.Context, id uuid.UUID, email string) error {
	query := `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, id, email); err != nil {
		return wrap("ensure profile", err)
	}
	return nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	var p models.Profile
	if err := scanProfile(s.pool.QueryRow(ctx, query, id), &p); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *ProfileStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0, len(ids))
	for rows.Next() {
		var p models.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func (s *ProfileStore) Update(ctx context.Context, id uuid.UUID, patch models.ProfileUpdate) (*models.Profile, error) {
	query := `
		UPDATE profiles SET
			display_name = COALESCE($2, display_name),
			avatar_url   = COALESCE($3, avatar_url),
			status       = COALESCE($4, status),
			updated_at   = now()
		WHERE id = $1
		RETURNING ` + profileColumns

	var p models.Profile
	err := scanProfile(s.pool.QueryRow(ctx, query, id, patch.DisplayName, patch.AvatarURL, patch.Status), &p)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, wrap("update profile", err)
	}
	return &p, nil
}
