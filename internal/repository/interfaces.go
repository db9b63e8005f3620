package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

// Conventions shared by every implementation:
//
//   - Lookups of a single row return nil, nil when the row does not exist.
//   - Lists return an empty slice, never nil, so JSON renders [] not null.
//   - A write that collides with a unique constraint returns an error
//     wrapping ErrDuplicate.
//   - Access control lives in the action layer. Methods that take a userID
//     use it to scope the rows they touch, not to authorize.

var ErrDuplicate = errors.New("duplicate")

// ProfileRepository reads and patches identity-linked user records.
type ProfileRepository interface {
	// Ensure creates the profile of a newly authenticated user if it does
	// not exist yet. It stands in for the identity provider's sign-up hook.
	Ensure(ctx context.Context, id uuid.UUID, email string) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)

	// GetMany returns the profiles that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error)

	// Update applies the non-nil fields of patch. Returns nil, nil if the
	// profile does not exist.
	Update(ctx context.Context, id uuid.UUID, patch models.ProfileUpdate) (*models.Profile, error)
}

type TeamRepository interface {
	// Create inserts the team. The backend also makes createdBy the owner
	// and creates the team's general channel.
	Create(ctx context.Context, createdBy uuid.UUID, in models.TeamInput) (*models.Team, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetBySlug(ctx context.Context, slug string) (*models.Team, error)

	// ListForUser returns the teams userID belongs to, oldest membership first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Team, error)

	Update(ctx context.Context, id uuid.UUID, patch models.TeamUpdate) (*models.Team, error)

	// Delete removes the team with its channels, memberships, messages and
	// file records.
	Delete(ctx context.Context, id uuid.UUID) error

	// Stats is the get_team_stats function.
	Stats(ctx context.Context, id uuid.UUID) (*models.TeamStats, error)
}

type TeamMemberRepository interface {
	Get(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)
	Add(ctx context.Context, teamID, userID uuid.UUID, role models.TeamRole) (*models.TeamMember, error)

	// Remove is a no-op if userID is not a member.
	Remove(ctx context.Context, teamID, userID uuid.UUID) error

	// List returns members with their profiles, by join time.
	List(ctx context.Context, teamID uuid.UUID) ([]models.TeamMemberWithProfile, error)
}

type ChannelRepository interface {
	Create(ctx context.Context, createdBy uuid.UUID, in models.ChannelInput) (*models.Channel, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)

	// GetByName looks a channel up inside one team.
	GetByName(ctx context.Context, teamID uuid.UUID, name string) (*models.Channel, error)

	// ListVisible returns the public channels of the team plus the private
	// ones userID belongs to, ordered by name.
	ListVisible(ctx context.Context, teamID, userID uuid.UUID) ([]models.Channel, error)

	Update(ctx context.Context, id uuid.UUID, patch models.ChannelUpdate) (*models.Channel, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChannelMemberRepository is the allow-list of private channels.
type ChannelMemberRepository interface {
	// AddMember is a no-op if userID is already a member.
	AddMember(ctx context.Context, channelID, userID uuid.UUID) error

	// RemoveMember is a no-op if userID is not a member.
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error

	ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error)

	// IsMember is on the hot path of every private-channel read and send.
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
}

type DirectMessageRepository interface {
	// CreateOrGet is the create_or_get_dm function: it returns the single
	// conversation of the unordered pair, creating it on first use.
	CreateOrGet(ctx context.Context, a, b uuid.UUID) (*models.DirectMessage, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.DirectMessage, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.DirectMessage, error)

	// Delete removes the conversation and its messages.
	Delete(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	// Create inserts m. ID and timestamps are assigned by the backend; a
	// reply bumps its parent's thread_count.
	Create(ctx context.Context, m models.Message) (*models.Message, error)

	// GetByID returns the message with its author and reactions.
	GetByID(ctx context.Context, id uuid.UUID) (*models.MessageWithAuthor, error)

	// List returns one newest-first window of top-level messages and the
	// total number of top-level messages in the conversation.
	List(ctx context.Context, conv models.Conversation, offset, limit int) ([]models.MessageWithAuthor, int, error)

	// ListBefore returns up to limit top-level messages strictly older than
	// cursor, newest first. A nil cursor starts from the latest message.
	ListBefore(ctx context.Context, conv models.Conversation, cursor *models.Cursor, limit int) ([]models.MessageWithAuthor, error)

	// ListReplies returns the thread under parentID, oldest first.
	ListReplies(ctx context.Context, parentID uuid.UUID) ([]models.MessageWithAuthor, error)

	// Latest returns the newest message of the conversation, or nil, nil.
	Latest(ctx context.Context, conv models.Conversation) (*models.MessageWithAuthor, error)

	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Message, error)

	// Delete removes the message, its replies and reactions. Deleting a
	// reply decrements the parent's thread_count.
	Delete(ctx context.Context, id uuid.UUID) error

	// Search is the search_messages function. Only conversations userID can
	// read are searched.
	Search(ctx context.Context, userID uuid.UUID, q models.SearchQuery) ([]models.SearchResult, error)
}

type ReactionRepository interface {
	Find(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error)
	Add(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*models.Reaction, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type PresenceRepository interface {
	// Upsert is the update_user_presence function. It stamps last_seen
	// with the backend clock and mirrors status onto the profile.
	Upsert(ctx context.Context, userID uuid.UUID, status models.Status) (*models.UserPresence, error)

	// Get returns the stored presence rows among userIDs. Users that never
	// reported are absent.
	Get(ctx context.Context, userIDs []uuid.UUID) ([]models.UserPresence, error)

	List(ctx context.Context) ([]models.UserPresence, error)
}

// NotificationRepository methods are scoped to the owning user; a row of
// another user behaves as missing.
type NotificationRepository interface {
	// ListForUser returns the newest notifications first.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)

	// MarkRead reports whether the notification existed.
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error

	// Delete reports whether the notification existed.
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}

type FileRepository interface {
	Create(ctx context.Context, f models.FileRecord) (*models.FileRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.FileRecord, error)

	// ListByTeam returns one newest-first window with uploader profiles and
	// the team's total file count.
	ListByTeam(ctx context.Context, teamID uuid.UUID, offset, limit int) ([]models.FileWithUploader, int, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// Backend bundles one implementation of every repository.
type Backend struct {
	Profiles       ProfileRepository
	Teams          TeamRepository
	TeamMembers    TeamMemberRepository
	Channels       ChannelRepository
	ChannelMembers ChannelMemberRepository
	DirectMessages DirectMessageRepository
	Messages       MessageRepository
	Reactions      ReactionRepository
	Presence       PresenceRepository
	Notifications  NotificationRepository
	Files          FileRepository
}
