// Package service is the action layer. Every operation takes the caller's
// user id explicitly, authorizes it against the backend, performs its
// backend call and returns either a result or an *apperr.Error.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/observ"
	"github.com/lalith-99/huddle/internal/repository"
	"github.com/lalith-99/huddle/internal/storage"
	"github.com/lalith-99/huddle/internal/validate"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Options struct {
	Backend  repository.Backend
	Storage  storage.ObjectStorage
	Events   events.Publisher
	Logger   *zap.Logger
	Clock    func() time.Time
	PageSize int
}

type Service struct {
	b        repository.Backend
	store    storage.ObjectStorage
	events   events.Publisher
	v        *validate.Validator
	logger   *zap.Logger
	now      func() time.Time
	pageSize int
}

func New(opts Options) *Service {
	s := &Service{
		b:        opts.Backend,
		store:    opts.Storage,
		events:   opts.Events,
		v:        validate.New(),
		logger:   opts.Logger,
		now:      opts.Clock,
		pageSize: opts.PageSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	s.events = events.Logged{Next: s.events, Logger: s.logger}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pageSize <= 0 || s.pageSize > MaxPageSize {
		s.pageSize = DefaultPageSize
	}
	return s
}

// observe counts the outcome of one action. Use as
// defer s.observe("name", &err) with a named error result.
func (s *Service) observe(action string, err *error) {
	result := "ok"
	if *err != nil {
		result = string(apperr.KindOf(*err))
	}
	observ.ActionsTotal.WithLabelValues(action, result).Inc()
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.NotAuthenticated()
	}
	return nil
}

// fail logs an unexpected backend error and hides it behind msg.
func (s *Service) fail(msg string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return apperr.Backend(msg, err)
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if ev.Path == "" {
		ev.Path = pathFor(ev)
	}
	_ = s.events.Publish(ctx, ev)
}

// pathFor is the view a client should refetch after ev.
func pathFor(ev events.Event) string {
	switch {
	case ev.DMID != nil:
		return fmt.Sprintf("/dm/%s", *ev.DMID)
	case ev.TeamID != nil && ev.ChannelID != nil:
		return fmt.Sprintf("/team/%s/channel/%s", *ev.TeamID, *ev.ChannelID)
	case ev.TeamID != nil:
		return fmt.Sprintf("/team/%s", *ev.TeamID)
	}
	return "/app"
}

// pageBounds clamps a 1-based page request.
func pageBounds(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// teamMember returns the caller's membership or access-denied.
func (s *Service) teamMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	m, err := s.b.TeamMembers.Get(ctx, teamID, userID)
	if err != nil {
		return nil, s.fail("Failed to check team membership", err)
	}
	if m == nil {
		return nil, apperr.AccessDenied("Not a member of this team")
	}
	return m, nil
}

// channelAccess loads a channel the caller may read and write: team
// membership is required, and channel membership too if it is private.
func (s *Service) channelAccess(ctx context.Context, channelID, userID uuid.UUID) (*models.Channel, *models.TeamMember, error) {
	ch, err := s.b.Channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, nil, s.fail("Failed to load channel", err)
	}
	if ch == nil {
		return nil, nil, apperr.NotFound("Channel not found")
	}
	m, err := s.b.TeamMembers.Get(ctx, ch.TeamID, userID)
	if err != nil {
		return nil, nil, s.fail("Failed to check team membership", err)
	}
	if m == nil {
		return nil, nil, apperr.AccessDenied("Access denied")
	}
	if ch.IsPrivate {
		ok, err := s.b.ChannelMembers.IsMember(ctx, ch.ID, userID)
		if err != nil {
			return nil, nil, s.fail("Failed to check channel membership", err)
		}
		if !ok {
			return nil, nil, apperr.AccessDenied("Access denied to private channel")
		}
	}
	return ch, m, nil
}

func (s *Service) dmAccess(ctx context.Context, dmID, userID uuid.UUID) (*models.DirectMessage, error) {
	dm, err := s.b.DirectMessages.GetByID(ctx, dmID)
	if err != nil {
		return nil, s.fail("Failed to load direct message", err)
	}
	if dm == nil {
		return nil, apperr.NotFound("Direct message not found")
	}
	if !dm.HasParticipant(userID) {
		return nil, apperr.AccessDenied("Access denied")
	}
	return dm, nil
}

// conversationAccess authorizes the caller on a channel or direct message
// and returns the event scope for mutations inside it.
func (s *Service) conversationAccess(ctx context.Context, conv models.Conversation, userID uuid.UUID) (events.Event, error) {
	switch conv.Kind {
	case models.ConversationChannel:
		ch, _, err := s.channelAccess(ctx, conv.ID, userID)
		if err != nil {
			return events.Event{}, err
		}
		return events.Event{ActorID: userID, TeamID: &ch.TeamID, ChannelID: &ch.ID}, nil
	case models.ConversationDM:
		dm, err := s.dmAccess(ctx, conv.ID, userID)
		if err != nil {
			return events.Event{}, err
		}
		return events.Event{ActorID: userID, DMID: &dm.ID}, nil
	}
	return events.Event{}, apperr.Validation("Must specify either channel or DM")
}

// Visible reports whether userID may be told about ev: they caused it, or
// they can read the conversation or team it is scoped to. Unscoped events
// are visible only when they describe a profile.
func (s *Service) Visible(ctx context.Context, userID uuid.UUID, ev events.Event) bool {
	if userID == uuid.Nil {
		return false
	}
	if ev.ActorID == userID {
		return true
	}
	var err error
	switch {
	case ev.DMID != nil:
		_, err = s.dmAccess(ctx, *ev.DMID, userID)
	case ev.ChannelID != nil:
		_, _, err = s.channelAccess(ctx, *ev.ChannelID, userID)
	case ev.TeamID != nil:
		_, err = s.teamMember(ctx, *ev.TeamID, userID)
	default:
		return ev.Action == events.ProfileUpdated || ev.Action == events.StatusUpdated
	}
	return err == nil
}
