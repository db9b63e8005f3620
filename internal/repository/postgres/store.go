// Package postgres implements the repositories on Postgres with pgx. The
// schema, its triggers and the change feed live in migrations/.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/repository"
)

const uniqueViolation = "23505"

// NewBackend wires every store onto one pool.
func NewBackend(pool *pgxpool.Pool) repository.Backend {
	return repository.Backend{
		Profiles:       NewProfileStore(pool),
		Teams:          NewTeamStore(pool),
		TeamMembers:    NewTeamMemberStore(pool),
		Channels:       NewChannelStore(pool),
		ChannelMembers: NewMembershipStore(pool),
		DirectMessages: NewDirectMessageStore(pool),
		Messages:       NewMessageStore(pool),
		Reactions:      NewReactionStore(pool),
		Presence:       NewPresenceStore(pool),
		Notifications:  NewNotificationStore(pool),
		Files:          NewFileStore(pool),
	}
}

// wrap annotates err, translating unique violations into
// repository.ErrDuplicate.
func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
