package service

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
)

// unreadScan bounds how many notifications are read to count DM unread.
const unreadScan = 200

// CreateOrGetDirectMessage returns the single conversation between the
// caller and otherUserID, creating it on first use.
func (s *Service) CreateOrGetDirectMessage(ctx context.Context, userID, otherUserID uuid.UUID) (_ *models.DirectMessage, err error) {
	defer s.observe("create_or_get_dm", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if otherUserID == uuid.Nil {
		return nil, apperr.Validation("Target user is required")
	}
	if otherUserID == userID {
		return nil, apperr.Validation("Cannot create DM with yourself")
	}
	other, err := s.b.Profiles.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, s.fail("Failed to create direct message", err)
	}
	if other == nil {
		return nil, apperr.NotFound("User not found")
	}

	dm, err := s.b.DirectMessages.CreateOrGet(ctx, userID, otherUserID)
	if err != nil {
		return nil, s.fail("Failed to create direct message", err)
	}
	s.publish(ctx, events.Event{Action: events.DirectMessageOpened, ActorID: userID, DMID: &dm.ID})
	return dm, nil
}

// ListDirectMessages summarizes the caller's conversations, most recently
// active first.
func (s *Service) ListDirectMessages(ctx context.Context, userID uuid.UUID) (_ []models.DirectMessageSummary, err error) {
	defer s.observe("list_dms", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	dms, err := s.b.DirectMessages.ListForUser(ctx, userID)
	if err != nil {
		return nil, s.fail("Failed to load direct messages", err)
	}
	if len(dms) == 0 {
		return []models.DirectMessageSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(dms))
	for _, dm := range dms {
		ids = append(ids, dm.Other(userID))
	}
	profiles, err := s.profilesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.unreadByDM(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.DirectMessageSummary, 0, len(dms))
	for _, dm := range dms {
		other := dm.Other(userID)
		last, err := s.b.Messages.Latest(ctx, models.DMConversation(dm.ID))
		if err != nil {
			return nil, s.fail("Failed to load direct messages", err)
		}
		out = append(out, models.DirectMessageSummary{
			ID:          dm.ID,
			OtherUser:   profileOrStub(profiles, other),
			LastMessage: last,
			UnreadCount: unread[dm.ID],
			CreatedAt:   dm.CreatedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b models.DirectMessageSummary) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
	return out, nil
}

// unreadByDM counts the caller's unread DM notifications per conversation.
func (s *Service) unreadByDM(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	notes, err := s.b.Notifications.ListForUser(ctx, userID, unreadScan)
	if err != nil {
		return nil, s.fail("Failed to load direct messages", err)
	}
	counts := make(map[uuid.UUID]int)
	for _, n := range notes {
		if !n.Read && n.Data.DMID != nil {
			counts[*n.Data.DMID]++
		}
	}
	return counts, nil
}

func (s *Service) profilesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	rows, err := s.b.Profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, s.fail("Failed to load profiles", err)
	}
	out := make(map[uuid.UUID]models.Profile, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// profileOrStub keeps a conversation renderable when the other side's
// profile is gone.
func profileOrStub(profiles map[uuid.UUID]models.Profile, id uuid.UUID) models.Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return models.Profile{ID: id, Status: models.StatusOffline}
}

// GetDirectMessage returns the conversation with both profiles and its
// first page of messages, oldest first.
func (s *Service) GetDirectMessage(ctx context.Context, userID, dmID uuid.UUID) (_ *models.DirectMessageWithMessages, err error) {
	defer s.observe("get_dm", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	dm, err := s.dmAccess(ctx, dmID, userID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profilesByID(ctx, []uuid.UUID{dm.User1ID, dm.User2ID})
	if err != nil {
		return nil, err
	}
	msgs, _, err := s.b.Messages.List(ctx, models.DMConversation(dm.ID), 0, s.pageSize)
	if err != nil {
		return nil, s.fail("Failed to load messages", err)
	}
	slices.Reverse(msgs)
	return &models.DirectMessageWithMessages{
		DirectMessage: *dm,
		User1:         profileOrStub(profiles, dm.User1ID),
		User2:         profileOrStub(profiles, dm.User2ID),
		Messages:      msgs,
	}, nil
}

// DeleteDirectMessage removes the conversation for both participants.
func (s *Service) DeleteDirectMessage(ctx context.Context, userID, dmID uuid.UUID) (err error) {
	defer s.observe("delete_dm", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	dm, err := s.dmAccess(ctx, dmID, userID)
	if err != nil {
		return err
	}
	if err := s.b.DirectMessages.Delete(ctx, dm.ID); err != nil {
		return s.fail("Failed to delete direct message", err)
	}
	s.publish(ctx, events.Event{Action: events.DirectMessageClosed, ActorID: userID, DMID: &dm.ID})
	return nil
}
