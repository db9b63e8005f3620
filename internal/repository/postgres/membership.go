package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

// MembershipStore keeps the allow-list of private channels.
//
// Public channels have no rows here: every team member can read them, and
// the action layer checks team membership for that. A row only matters
// when channels.is_private is true.
type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func (s *MembershipStore) AddMember(ctx context.Context, channelID, userID uuid.UUID) error {
	// ON CONFLICT DO NOTHING: joining a channel you are already in is a
	// no-op instead of an error. Why?
	//   - "join channel" should be idempotent. A double click or a retried
	//     request must not surface a primary key violation.
	//   - Creating a private channel also adds its creator here, so the
	//     same pair can arrive from two code paths.
	query := `
		INSERT INTO channel_members (channel_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (channel_id, user_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, channelID, userID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *MembershipStore) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	// DELETE of a missing row affects zero rows and returns no error, so
	// leaving twice is fine too.
	query := `
		DELETE FROM channel_members
		WHERE channel_id = $1 AND user_id = $2`

	if _, err := s.pool.Exec(ctx, query, channelID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *MembershipStore) ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	query := `
		SELECT id, channel_id, user_id, joined_at
		FROM channel_members
		WHERE channel_id = $1
		ORDER BY joined_at`

	// Ordered by join time so the member list reads the same way on every
	// request, oldest member first.

	rows, err := s.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.ChannelMember, 0)
	for rows.Next() {
		var m models.ChannelMember
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func (s *MembershipStore) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	// SELECT EXISTS returns a single boolean and stops at the first
	// matching row.
	//
	// Why not COUNT(*) > 0?
	//   - COUNT visits every matching row; EXISTS stops at one.
	//   - This runs on every read and send in a private channel, so it is
	//     the hottest query in the store.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM channel_members
			WHERE channel_id = $1 AND user_id = $2
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, channelID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}
