package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationMessage NotificationType = "message"
	NotificationDM      NotificationType = "dm"
	NotificationMention NotificationType = "mention"
)

// NotificationData is the deep-link payload stored alongside a notification.
type NotificationData struct {
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	ChannelID *uuid.UUID `json:"channel_id,omitempty"`
	DMID      *uuid.UUID `json:"dm_id,omitempty"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
}

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   *string          `json:"content"`
	Data      NotificationData `json:"data"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Link is the in-app path the notification opens, or "" when the payload
// does not point anywhere.
func (n Notification) Link() string {
	d := n.Data
	switch {
	case d.DMID != nil:
		return fmt.Sprintf("/dm/%s", *d.DMID)
	case d.TeamID != nil && d.ChannelID != nil:
		return fmt.Sprintf("/team/%s/channel/%s", *d.TeamID, *d.ChannelID)
	case d.ChannelID != nil:
		return fmt.Sprintf("/channel/%s", *d.ChannelID)
	}
	return ""
}
