package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

// PresenceTracker holds the last reported presence of each user. Reads
// apply the staleness window every time; nothing is expired in the
// background.
type PresenceTracker struct {
	mu         sync.RWMutex
	staleAfter time.Duration
	users      map[uuid.UUID]models.UserPresence
}

func NewPresenceTracker(staleAfter time.Duration) *PresenceTracker {
	if staleAfter <= 0 {
		staleAfter = models.PresenceStaleAfter
	}
	return &PresenceTracker{
		staleAfter: staleAfter,
		users:      make(map[uuid.UUID]models.UserPresence),
	}
}

// Load replaces the tracked set with rows.
func (t *PresenceTracker) Load(rows []models.UserPresence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users = make(map[uuid.UUID]models.UserPresence, len(rows))
	for _, p := range rows {
		t.users[p.UserID] = p
	}
}

// Apply merges a user_presence change event. It reports whether the event
// was relevant.
func (t *PresenceTracker) Apply(ev ChangeEvent) bool {
	if ev.Table != TablePresence || ev.UserID == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.Kind == KindDelete {
		delete(t.users, *ev.UserID)
		return true
	}
	p := models.UserPresence{UserID: *ev.UserID, Status: ev.Status}
	if ev.LastSeen != nil {
		p.LastSeen = *ev.LastSeen
		p.UpdatedAt = *ev.LastSeen
	}
	// Events can arrive out of order; keep the freshest report.
	if cur, ok := t.users[p.UserID]; ok && cur.LastSeen.After(p.LastSeen) {
		return false
	}
	t.users[p.UserID] = p
	return true
}

// Status is the effective status of userID at now. Unknown users are
// offline.
func (t *PresenceTracker) Status(userID uuid.UUID, now time.Time) models.Status {
	t.mu.RLock()
	p, ok := t.users[userID]
	t.mu.RUnlock()
	if !ok {
		return models.StatusOffline
	}
	return models.EffectiveStatus(p.Status, p.LastSeen, now, t.staleAfter)
}

// OnlineUsers lists users whose effective status at now is online, sorted.
func (t *PresenceTracker) OnlineUsers(now time.Time) []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]uuid.UUID, 0)
	for id, p := range t.users {
		if models.EffectiveStatus(p.Status, p.LastSeen, now, t.staleAfter) == models.StatusOnline {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Snapshot returns every tracked user with the effective status at now.
func (t *PresenceTracker) Snapshot(now time.Time) []models.UserPresence {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.UserPresence, 0, len(t.users))
	for _, p := range t.users {
		p.Status = models.EffectiveStatus(p.Status, p.LastSeen, now, t.staleAfter)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out
}
