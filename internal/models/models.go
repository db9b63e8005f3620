package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is what a user reports about themselves. The value read back by
// presence queries may differ, see UserPresence.EffectiveStatus.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// TeamRole is a member's role inside one team. The creator is the owner.
type TeamRole string

const (
	RoleOwner  TeamRole = "owner"
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
)

// CanManage reports whether the role may edit team-level resources
// (team settings, other people's channels and files).
func (r TeamRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Profile is the identity-linked user record. Rows are created by the
// identity provider on sign-up; this service only reads and patches them.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Status      Status    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=80"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
	Status      *Status `json:"status" validate:"omitempty,status"`
}

// Team is a workspace. Slug is globally unique and doubles as the invite code.
type Team struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	AvatarURL   *string   `json:"avatar_url"`
	Slug        string    `json:"slug"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TeamInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Slug        string  `json:"slug" validate:"required,min=2,max=48,slug"`
}

type TeamUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Slug        *string `json:"slug" validate:"omitempty,min=2,max=48,slug"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
}

type TeamMember struct {
	ID       uuid.UUID `json:"id"`
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     TeamRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type TeamMemberWithProfile struct {
	TeamMember
	Profile Profile `json:"profile"`
}

type TeamWithMembers struct {
	Team
	Members  []TeamMemberWithProfile `json:"members"`
	Channels []Channel               `json:"channels"`
}

type TeamStats struct {
	MemberCount   int `json:"member_count"`
	ChannelCount  int `json:"channel_count"`
	MessageCount  int `json:"message_count"`
	OnlineMembers int `json:"online_members"`
}

// Channel is a named stream inside one team. Private channels are gated by
// the ChannelMember allow-list on top of team membership.
type Channel struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GeneralChannel is created with every team and cannot be deleted.
const GeneralChannel = "general"

type ChannelInput struct {
	TeamID      uuid.UUID `json:"team_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1,max=80,slug"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	IsPrivate   bool      `json:"is_private"`
}

type ChannelUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=80,slug"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsPrivate   *bool   `json:"is_private"`
}

type ChannelMember struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// DirectMessage is a two-party conversation. The pair is stored in canonical
// order (User1ID < User2ID) so there is at most one row per unordered pair.
type DirectMessage struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is one side of the conversation.
func (dm DirectMessage) HasParticipant(userID uuid.UUID) bool {
	return dm.User1ID == userID || dm.User2ID == userID
}

// Other returns the participant that is not userID.
func (dm DirectMessage) Other(userID uuid.UUID) uuid.UUID {
	if dm.User1ID == userID {
		return dm.User2ID
	}
	return dm.User1ID
}

// CanonicalPair orders two user ids the way direct_messages stores them.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}

type DirectMessageSummary struct {
	ID          uuid.UUID          `json:"id"`
	OtherUser   Profile            `json:"other_user"`
	LastMessage *MessageWithAuthor `json:"last_message,omitempty"`
	UnreadCount int                `json:"unread_count"`
	CreatedAt   time.Time          `json:"created_at"`
}

// LastActivity is the time the summary sorts by.
func (s DirectMessageSummary) LastActivity() time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.CreatedAt
}

type DirectMessageWithMessages struct {
	DirectMessage
	User1    Profile             `json:"user1"`
	User2    Profile             `json:"user2"`
	Messages []MessageWithAuthor `json:"messages"`
}
