package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

// NotificationList is a newest-first list of one user's notifications,
// kept current from notification change events. It is not safe for
// concurrent use.
type NotificationList struct {
	items []models.Notification
}

func NewNotificationList(rows []models.Notification) *NotificationList {
	l := &NotificationList{}
	l.Load(rows)
	return l
}

// Load replaces the list with rows, which must be newest first.
func (l *NotificationList) Load(rows []models.Notification) {
	l.items = make([]models.Notification, len(rows))
	copy(l.items, rows)
}

// Apply merges a notifications change event. Inserts are prepended unless
// already present, updates replace by id and deletes remove by id. It
// reports whether the list changed.
func (l *NotificationList) Apply(ev ChangeEvent) (bool, error) {
	if ev.Table != TableNotifications {
		return false, nil
	}
	if ev.Kind == KindDelete {
		return l.remove(ev.ID), nil
	}

	var n models.Notification
	if err := json.Unmarshal(ev.Record, &n); err != nil {
		return false, fmt.Errorf("decode notification: %w", err)
	}
	switch ev.Kind {
	case KindInsert:
		if l.indexOf(n.ID) >= 0 {
			return false, nil
		}
		l.items = append([]models.Notification{n}, l.items...)
		return true, nil
	case KindUpdate:
		i := l.indexOf(n.ID)
		if i < 0 {
			return false, nil
		}
		l.items[i] = n
		return true, nil
	}
	return false, nil
}

func (l *NotificationList) indexOf(id uuid.UUID) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *NotificationList) remove(id uuid.UUID) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

func (l *NotificationList) UnreadCount() int {
	n := 0
	for _, item := range l.items {
		if !item.Read {
			n++
		}
	}
	return n
}

// Items returns a copy.
func (l *NotificationList) Items() []models.Notification {
	out := make([]models.Notification, len(l.items))
	copy(out, l.items)
	return out
}
