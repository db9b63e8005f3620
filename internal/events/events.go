// Package events carries notices about completed mutations. Connected
// clients use them to refetch the affected view (revalidation); downstream
// consumers read them as an activity stream.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Action string

const (
	TeamCreated         Action = "team.created"
	TeamUpdated         Action = "team.updated"
	TeamDeleted         Action = "team.deleted"
	TeamJoined          Action = "team.joined"
	TeamLeft            Action = "team.left"
	ChannelCreated      Action = "channel.created"
	ChannelUpdated      Action = "channel.updated"
	ChannelDeleted      Action = "channel.deleted"
	ChannelJoined       Action = "channel.joined"
	ChannelLeft         Action = "channel.left"
	MessageSent         Action = "message.sent"
	MessageEdited       Action = "message.edited"
	MessageDeleted      Action = "message.deleted"
	ReactionToggled     Action = "reaction.toggled"
	DirectMessageOpened Action = "dm.opened"
	DirectMessageClosed Action = "dm.deleted"
	ProfileUpdated      Action = "profile.updated"
	StatusUpdated       Action = "status.updated"
	FileUploaded        Action = "file.uploaded"
	FileDeleted         Action = "file.deleted"
	NotificationsRead   Action = "notifications.read"
	NotificationsClosed Action = "notifications.deleted"
)

// Event names the actor, the resource touched and the view path that is
// now stale.
type Event struct {
	Action    Action     `json:"action"`
	ActorID   uuid.UUID  `json:"actor_id"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	ChannelID *uuid.UUID `json:"channel_id,omitempty"`
	DMID      *uuid.UUID `json:"dm_id,omitempty"`
	Path      string     `json:"path"`
	At        time.Time  `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber streams events until ctx is done, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logged wraps a publisher so failures are logged instead of returned.
// Mutations have already committed when their event is published.
type Logged struct {
	Next   Publisher
	Logger *zap.Logger
}

func (l Logged) Publish(ctx context.Context, ev Event) error {
	if err := l.Next.Publish(ctx, ev); err != nil {
		l.Logger.Warn("failed to publish event",
			zap.String("action", string(ev.Action)),
			zap.String("path", ev.Path),
			zap.Error(err),
		)
	}
	return nil
}
