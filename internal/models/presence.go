package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceStaleAfter is how long an "online" report stays believable
// without a fresh heartbeat.
const PresenceStaleAfter = 5 * time.Minute

type UserPresence struct {
	UserID    uuid.UUID `json:"user_id"`
	Status    Status    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveStatus is the status readers should display. A reported
// "online" whose last_seen is older than PresenceStaleAfter reads as
// offline; other statuses are returned as stored.
func (p UserPresence) EffectiveStatus(now time.Time) Status {
	return EffectiveStatus(p.Status, p.LastSeen, now, PresenceStaleAfter)
}

func (p UserPresence) IsOnline(now time.Time) bool {
	return p.EffectiveStatus(now) == StatusOnline
}

// EffectiveStatus applies the staleness window to a stored status.
func EffectiveStatus(status Status, lastSeen, now time.Time, staleAfter time.Duration) Status {
	if status == StatusOnline && now.Sub(lastSeen) > staleAfter {
		return StatusOffline
	}
	if status == "" {
		return StatusOffline
	}
	return status
}
