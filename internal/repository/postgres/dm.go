package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type DirectMessageStore struct {
	pool *pgxpool.Pool
}

func NewDirectMessageStore(pool *pgxpool.Pool) *DirectMessageStore {
	return &DirectMessageStore{pool: pool}
}

func (s *DirectMessageStore) CreateOrGet(ctx context.Context, a, b uuid.UUID) (*models.DirectMessage, error) {
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, `SELECT create_or_get_dm($1, $2)`, a, b).Scan(&id); err != nil {
		return nil, fmt.Errorf("create or get dm: %w", err)
	}
	dm, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dm == nil {
		return nil, fmt.Errorf("create or get dm: %s vanished", id)
	}
	return dm, nil
}

func (s *DirectMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.DirectMessage, error) {
	query := `SELECT id, user1_id, user2_id, created_at FROM direct_messages WHERE id = $1`

	var dm models.DirectMessage
	if err := s.pool.QueryRow(ctx, query, id).Scan(&dm.ID, &dm.User1ID, &dm.User2ID, &dm.CreatedAt); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dm: %w", err)
	}
	return &dm, nil
}

func (s *DirectMessageStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.DirectMessage, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM direct_messages
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list dms: %w", err)
	}
	defer rows.Close()

	dms := make([]models.DirectMessage, 0)
	for rows.Next() {
		var dm models.DirectMessage
		if err := rows.Scan(&dm.ID, &dm.User1ID, &dm.User2ID, &dm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dm: %w", err)
		}
		dms = append(dms, dm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dms: %w", err)
	}
	return dms, nil
}

func (s *DirectMessageStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM direct_messages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete dm: %w", err)
	}
	return nil
}
