package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

const channelColumns = `id, team_id, name, description, is_private, created_by, created_at, updated_at`

func scanChannel(row pgx.Row, ch *models.Channel) error {
	return row.Scan(
		&ch.ID,
		&ch.TeamID,
		&ch.Name,
		&ch.Description,
		&ch.IsPrivate,
		&ch.CreatedBy,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
}

func (s *ChannelStore) Create(ctx context.Context, createdBy uuid.UUID, in models.ChannelInput) (*models.Channel, error) {
	// RETURNING hands back the row exactly as stored (id, defaults and
	// timestamps filled in by Postgres) in the same round trip as the
	// INSERT. A UNIQUE (team_id, name) violation comes back as 23505 and
	// wrap turns it into repository.ErrDuplicate, so the action layer can
	// answer "name taken" without parsing driver errors.
	query := `
		INSERT INTO channels (team_id, name, description, is_private, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + channelColumns

	var ch models.Channel
	err := scanChannel(s.pool.QueryRow(ctx, query, in.TeamID, in.Name, in.Description, in.IsPrivate, createdBy), &ch)
	if err != nil {
		return nil, wrap("insert channel", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = $1`

	var ch models.Channel
	if err := scanChannel(s.pool.QueryRow(ctx, query, id), &ch); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByName(ctx context.Context, teamID uuid.UUID, name string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE team_id = $1 AND name = $2`

	var ch models.Channel
	if err := scanChannel(s.pool.QueryRow(ctx, query, teamID, name), &ch); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel by name: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListVisible(ctx context.Context, teamID, userID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		WHERE c.team_id = $1
		  AND (NOT c.is_private OR EXISTS (
				SELECT 1 FROM channel_members cm
				WHERE cm.channel_id = c.id AND cm.user_id = $2))
		ORDER BY c.name`

	rows, err := s.pool.Query(ctx, query, teamID, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := scanChannel(rows, &ch); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}

func (s *ChannelStore) Update(ctx context.Context, id uuid.UUID, patch models.ChannelUpdate) (*models.Channel, error) {
	query := `
		UPDATE channels SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			is_private  = COALESCE($4, is_private),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + channelColumns

	var ch models.Channel
	err := scanChannel(s.pool.QueryRow(ctx, query, id, patch.Name, patch.Description, patch.IsPrivate), &ch)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, wrap("update channel", err)
	}
	return &ch, nil
}

func (s *ChannelStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}
