package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type ReactionStore struct {
	pool *pgxpool.Pool
}

func NewReactionStore(pool *pgxpool.Pool) *ReactionStore {
	return &ReactionStore{pool: pool}
}

func (s *ReactionStore) Find(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error) {
	query := `
		SELECT id, message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3`

	var r models.Reaction
	err := s.pool.QueryRow(ctx, query, messageID, userID, emoji).Scan(&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reaction: %w", err)
	}
	return &r, nil
}

func (s *ReactionStore) Add(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error) {
	query := `
		INSERT INTO message_reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		RETURNING id, message_id, user_id, emoji, created_at`

	var r models.Reaction
	err := s.pool.QueryRow(ctx, query, messageID, userID, emoji).Scan(&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt)
	if err != nil {
		return nil, wrap("insert reaction", err)
	}
	return &r, nil
}

func (s *ReactionStore) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM message_reactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}
