package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type PresenceStore struct {
	pool *pgxpool.Pool
}

func NewPresenceStore(pool *pgxpool.Pool) *PresenceStore {
	return &PresenceStore{pool: pool}
}

func (s *PresenceStore) Upsert(ctx context.Context, userID uuid.UUID, status models.Status) (*models.UserPresence, error) {
	query := `SELECT user_id, status, last_seen, updated_at FROM update_user_presence($1, $2)`

	var p models.UserPresence
	if err := s.pool.QueryRow(ctx, query, userID, status).Scan(&p.UserID, &p.Status, &p.LastSeen, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update presence: %w", err)
	}
	return &p, nil
}

func (s *PresenceStore) Get(ctx context.Context, userIDs []uuid.UUID) ([]models.UserPresence, error) {
	return s.list(ctx, `
		SELECT user_id, status, last_seen, updated_at
		FROM user_presence
		WHERE user_id = ANY($1)`, userIDs)
}

func (s *PresenceStore) List(ctx context.Context) ([]models.UserPresence, error) {
	return s.list(ctx, `
		SELECT user_id, status, last_seen, updated_at
		FROM user_presence
		ORDER BY last_seen DESC`)
}

func (s *PresenceStore) list(ctx context.Context, query string, args ...any) ([]models.UserPresence, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	defer rows.Close()

	out := make([]models.UserPresence, 0)
	for rows.Next() {
		var p models.UserPresence
		if err := rows.Scan(&p.UserID, &p.Status, &p.LastSeen, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence: %w", err)
	}
	return out, nil
}
