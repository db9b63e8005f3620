package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
)

const defaultNotifications = 50

// ListNotifications returns the caller's newest notifications first.
func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) (_ []models.Notification, err error) {
	defer s.observe("list_notifications", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	_, limit = pageBounds(1, limit, defaultNotifications)
	rows, err := s.b.Notifications.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, s.fail("Failed to load notifications", err)
	}
	return rows, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) (err error) {
	defer s.observe("mark_notification_read", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	ok, err := s.b.Notifications.MarkRead(ctx, userID, id)
	if err != nil {
		return s.fail("Failed to update notification", err)
	}
	if !ok {
		return apperr.NotFound("Notification not found")
	}
	s.publish(ctx, events.Event{Action: events.NotificationsRead, ActorID: userID})
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (err error) {
	defer s.observe("mark_all_notifications_read", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.b.Notifications.MarkAllRead(ctx, userID); err != nil {
		return s.fail("Failed to update notifications", err)
	}
	s.publish(ctx, events.Event{Action: events.NotificationsRead, ActorID: userID})
	return nil
}

func (s *Service) DeleteNotification(ctx context.Context, userID, id uuid.UUID) (err error) {
	defer s.observe("delete_notification", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	ok, err := s.b.Notifications.Delete(ctx, userID, id)
	if err != nil {
		return s.fail("Failed to delete notification", err)
	}
	if !ok {
		return apperr.NotFound("Notification not found")
	}
	s.publish(ctx, events.Event{Action: events.NotificationsClosed, ActorID: userID})
	return nil
}

// ClearNotifications deletes all of the caller's notifications.
func (s *Service) ClearNotifications(ctx context.Context, userID uuid.UUID) (err error) {
	defer s.observe("clear_notifications", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.b.Notifications.DeleteAll(ctx, userID); err != nil {
		return s.fail("Failed to delete notifications", err)
	}
	s.publish(ctx, events.Event{Action: events.NotificationsClosed, ActorID: userID})
	return nil
}
