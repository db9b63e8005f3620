// Package memory is an in-process backend with the same guarantees as the
// Postgres schema: unique constraints, cascades, the row-level functions
// and the triggers that create owner memberships, general channels and
// notifications. Every change is published as a realtime.ChangeEvent.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
)

type Store struct {
	mu   sync.RWMutex
	pub  realtime.Publisher
	now  func() time.Time
	last time.Time

	profiles       map[uuid.UUID]models.Profile
	teams          map[uuid.UUID]models.Team
	teamMembers    map[uuid.UUID]models.TeamMember
	channels       map[uuid.UUID]models.Channel
	channelMembers map[uuid.UUID]models.ChannelMember
	dms            map[uuid.UUID]models.DirectMessage
	messages       map[uuid.UUID]models.Message
	reactions      map[uuid.UUID]models.Reaction
	presence       map[uuid.UUID]models.UserPresence
	notifications  map[uuid.UUID]models.Notification
	files          map[uuid.UUID]models.FileRecord
}

type Option func(*Store)

// WithPublisher sends change events to p.
func WithPublisher(p realtime.Publisher) Option {
	return func(s *Store) { s.pub = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:            time.Now,
		profiles:       make(map[uuid.UUID]models.Profile),
		teams:          make(map[uuid.UUID]models.Team),
		teamMembers:    make(map[uuid.UUID]models.TeamMember),
		channels:       make(map[uuid.UUID]models.Channel),
		channelMembers: make(map[uuid.UUID]models.ChannelMember),
		dms:            make(map[uuid.UUID]models.DirectMessage),
		messages:       make(map[uuid.UUID]models.Message),
		reactions:      make(map[uuid.UUID]models.Reaction),
		presence:       make(map[uuid.UUID]models.UserPresence),
		notifications:  make(map[uuid.UUID]models.Notification),
		files:          make(map[uuid.UUID]models.FileRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend exposes the store through the repository interfaces.
func (s *Store) Backend() repository.Backend {
	return repository.Backend{
		Profiles:       &profileRepo{s},
		Teams:          &teamRepo{s},
		TeamMembers:    &teamMemberRepo{s},
		Channels:       &channelRepo{s},
		ChannelMembers: &channelMemberRepo{s},
		DirectMessages: &dmRepo{s},
		Messages:       &messageRepo{s},
		Reactions:      &reactionRepo{s},
		Presence:       &presenceRepo{s},
		Notifications:  &notificationRepo{s},
		Files:          &fileRepo{s},
	}
}

// tick returns a strictly increasing timestamp at microsecond precision,
// matching what Postgres stores. Callers hold s.mu.
func (s *Store) tick() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) emit(evs []realtime.ChangeEvent) {
	if s.pub == nil {
		return
	}
	for _, ev := range evs {
		s.pub.Publish(ev)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func (s *Store) memberRole(teamID, userID uuid.UUID) (models.TeamRole, bool) {
	for _, m := range s.teamMembers {
		if m.TeamID == teamID && m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

func (s *Store) inChannel(channelID, userID uuid.UUID) bool {
	for _, m := range s.channelMembers {
		if m.ChannelID == channelID && m.UserID == userID {
			return true
		}
	}
	return false
}

// canRead mirrors the read policy of messages: team members read public
// channels, private channels also need channel membership, and direct
// messages are visible to their two participants.
func (s *Store) canRead(m models.Message, userID uuid.UUID) bool {
	if m.DMID != nil {
		dm, ok := s.dms[*m.DMID]
		return ok && dm.HasParticipant(userID)
	}
	if m.ChannelID == nil {
		return false
	}
	ch, ok := s.channels[*m.ChannelID]
	if !ok {
		return false
	}
	if _, ok := s.memberRole(ch.TeamID, userID); !ok {
		return false
	}
	return !ch.IsPrivate || s.inChannel(ch.ID, userID)
}

func displayName(p models.Profile) string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	for i, r := range p.Email {
		if r == '@' {
			return p.Email[:i]
		}
	}
	return p.Email
}
