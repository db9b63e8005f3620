package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/repository"
)

var errChannelNameTaken = apperr.Validation("Channel name already exists in this team")

// CreateChannel adds the creator to the allow-list of a private channel.
func (s *Service) CreateChannel(ctx context.Context, userID uuid.UUID, in models.ChannelInput) (_ *models.Channel, err error) {
	defer s.observe("create_channel", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	in.Name = strings.ToLower(strings.TrimSpace(in.Name))
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.teamMember(ctx, in.TeamID, userID); err != nil {
		return nil, err
	}

	existing, err := s.b.Channels.GetByName(ctx, in.TeamID, in.Name)
	if err != nil {
		return nil, s.fail("Failed to create channel", err)
	}
	if existing != nil {
		return nil, errChannelNameTaken
	}

	ch, err := s.b.Channels.Create(ctx, userID, in)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, errChannelNameTaken
	}
	if err != nil {
		return nil, s.fail("Failed to create channel", err)
	}
	if ch.IsPrivate {
		if err := s.b.ChannelMembers.AddMember(ctx, ch.ID, userID); err != nil {
			return nil, s.fail("Failed to create channel", err)
		}
	}
	s.publish(ctx, events.Event{Action: events.ChannelCreated, ActorID: userID, TeamID: &ch.TeamID, ChannelID: &ch.ID})
	return ch, nil
}

func (s *Service) GetChannel(ctx context.Context, userID, channelID uuid.UUID) (_ *models.Channel, err error) {
	defer s.observe("get_channel", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ch, _, err := s.channelAccess(ctx, channelID, userID)
	return ch, err
}

// ListChannels returns the public channels of the team and the private
// ones the caller belongs to, by name.
func (s *Service) ListChannels(ctx context.Context, userID, teamID uuid.UUID) (_ []models.Channel, err error) {
	defer s.observe("list_channels", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.teamMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	channels, err := s.b.Channels.ListVisible(ctx, teamID, userID)
	if err != nil {
		return nil, s.fail("Failed to load channels", err)
	}
	return channels, nil
}

// manageChannel authorizes edits: the channel's creator or a team owner
// or admin.
func (s *Service) manageChannel(ctx context.Context, channelID, userID uuid.UUID) (*models.Channel, error) {
	ch, m, err := s.channelAccess(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if ch.CreatedBy != userID && !m.Role.CanManage() {
		return nil, apperr.AccessDenied("Insufficient permissions")
	}
	return ch, nil
}

func (s *Service) UpdateChannel(ctx context.Context, userID, channelID uuid.UUID, patch models.ChannelUpdate) (_ *models.Channel, err error) {
	defer s.observe("update_channel", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*patch.Name))
		patch.Name = &name
	}
	if err := s.v.Struct(patch); err != nil {
		return nil, err
	}
	ch, err := s.manageChannel(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != ch.Name {
		if ch.Name == models.GeneralChannel {
			return nil, apperr.Validation("Cannot rename the general channel")
		}
		other, err := s.b.Channels.GetByName(ctx, ch.TeamID, *patch.Name)
		if err != nil {
			return nil, s.fail("Failed to update channel", err)
		}
		if other != nil {
			return nil, errChannelNameTaken
		}
	}
	if patch.IsPrivate != nil && *patch.IsPrivate && ch.Name == models.GeneralChannel {
		return nil, apperr.Validation("The general channel must stay public")
	}

	updated, err := s.b.Channels.Update(ctx, channelID, patch)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, errChannelNameTaken
	}
	if err != nil {
		return nil, s.fail("Failed to update channel", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Channel not found")
	}
	if updated.IsPrivate && !ch.IsPrivate {
		// Keep the editor inside the channel they just closed.
		if err := s.b.ChannelMembers.AddMember(ctx, updated.ID, userID); err != nil {
			return nil, s.fail("Failed to update channel", err)
		}
	}
	s.publish(ctx, events.Event{Action: events.ChannelUpdated, ActorID: userID, TeamID: &updated.TeamID, ChannelID: &updated.ID})
	return updated, nil
}

func (s *Service) DeleteChannel(ctx context.Context, userID, channelID uuid.UUID) (err error) {
	defer s.observe("delete_channel", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	ch, err := s.manageChannel(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if ch.Name == models.GeneralChannel {
		return apperr.Validation("Cannot delete the general channel")
	}
	if err := s.b.Channels.Delete(ctx, channelID); err != nil {
		return s.fail("Failed to delete channel", err)
	}
	s.publish(ctx, events.Event{Action: events.ChannelDeleted, ActorID: userID, TeamID: &ch.TeamID})
	return nil
}

// JoinChannel adds the caller to a private channel's allow-list. Public
// channels need no joining.
func (s *Service) JoinChannel(ctx context.Context, userID, channelID uuid.UUID) (err error) {
	defer s.observe("join_channel", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	ch, err := s.b.Channels.GetByID(ctx, channelID)
	if err != nil {
		return s.fail("Failed to join channel", err)
	}
	if ch == nil {
		return apperr.NotFound("Channel not found")
	}
	m, err := s.b.TeamMembers.Get(ctx, ch.TeamID, userID)
	if err != nil {
		return s.fail("Failed to join channel", err)
	}
	if m == nil {
		return apperr.AccessDenied("Must be team member to join channel")
	}
	if !ch.IsPrivate {
		return apperr.Validation("Cannot join public channels")
	}
	already, err := s.b.ChannelMembers.IsMember(ctx, ch.ID, userID)
	if err != nil {
		return s.fail("Failed to join channel", err)
	}
	if already {
		return apperr.Validation("Already a member of this channel")
	}
	if err := s.b.ChannelMembers.AddMember(ctx, ch.ID, userID); err != nil {
		return s.fail("Failed to join channel", err)
	}
	s.publish(ctx, events.Event{Action: events.ChannelJoined, ActorID: userID, TeamID: &ch.TeamID, ChannelID: &ch.ID})
	return nil
}

func (s *Service) LeaveChannel(ctx context.Context, userID, channelID uuid.UUID) (err error) {
	defer s.observe("leave_channel", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	ch, err := s.b.Channels.GetByID(ctx, channelID)
	if err != nil {
		return s.fail("Failed to leave channel", err)
	}
	if ch == nil {
		return apperr.NotFound("Channel not found")
	}
	if !ch.IsPrivate {
		return apperr.Validation("Cannot leave public channels")
	}
	if err := s.b.ChannelMembers.RemoveMember(ctx, ch.ID, userID); err != nil {
		return s.fail("Failed to leave channel", err)
	}
	s.publish(ctx, events.Event{Action: events.ChannelLeft, ActorID: userID, TeamID: &ch.TeamID})
	return nil
}

func (s *Service) ListChannelMembers(ctx context.Context, userID, channelID uuid.UUID) (_ []models.ChannelMember, err error) {
	defer s.observe("list_channel_members", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, _, err := s.channelAccess(ctx, channelID, userID); err != nil {
		return nil, err
	}
	members, err := s.b.ChannelMembers.ListMembers(ctx, channelID)
	if err != nil {
		return nil, s.fail("Failed to load channel members", err)
	}
	return members, nil
}
