package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
)

type messageRepo struct{ s *Store }

func messageEvent(kind realtime.Kind, m models.Message) realtime.ChangeEvent {
	return realtime.ChangeEvent{
		Kind:      kind,
		Table:     realtime.TableMessages,
		ID:        m.ID,
		ChannelID: m.ChannelID,
		DMID:      m.DMID,
		UserID:    ptr(m.AuthorID),
		ParentID:  m.ParentID,
	}
}

func (r *messageRepo) Create(_ context.Context, m models.Message) (*models.Message, error) {
	s := r.s
	s.mu.Lock()

	if (m.ChannelID == nil) == (m.DMID == nil) {
		s.mu.Unlock()
		return nil, fmt.Errorf("insert message: exactly one of channel_id and dm_id must be set")
	}
	if m.Type == "" {
		m.Type = models.MessageText
	}
	now := s.tick()
	m.ID = uuid.New()
	m.ThreadCount = 0
	m.CreatedAt = now
	m.UpdatedAt = now
	s.messages[m.ID] = m

	evs := []realtime.ChangeEvent{messageEvent(realtime.KindInsert, m)}
	if m.ParentID != nil {
		if parent, ok := s.messages[*m.ParentID]; ok {
			parent.ThreadCount++
			s.messages[parent.ID] = parent
			evs = append(evs, messageEvent(realtime.KindUpdate, parent))
		}
	}
	evs = append(evs, s.notifyLocked(m)...)
	s.mu.Unlock()

	s.emit(evs)
	return &m, nil
}

// notifyLocked is the on_message_created trigger: the other participant of
// a direct message is notified, and in channels every reader mentioned as
// @name is. Callers hold s.mu.
func (s *Store) notifyLocked(m models.Message) []realtime.ChangeEvent {
	author := s.profiles[m.AuthorID]
	name := displayName(author)
	preview := truncate(m.Content, 100)

	var out []models.Notification
	switch {
	case m.DMID != nil:
		dm, ok := s.dms[*m.DMID]
		if !ok {
			return nil
		}
		out = append(out, models.Notification{
			UserID:  dm.Other(m.AuthorID),
			Type:    models.NotificationDM,
			Title:   "New message from " + name,
			Content: ptr(preview),
			Data:    models.NotificationData{MessageID: ptr(m.ID), AuthorID: ptr(m.AuthorID), DMID: m.DMID},
		})
	case m.ChannelID != nil:
		ch, ok := s.channels[*m.ChannelID]
		if !ok {
			return nil
		}
		content := strings.ToLower(m.Content)
		for _, tm := range s.teamMembers {
			if tm.TeamID != ch.TeamID || tm.UserID == m.AuthorID {
				continue
			}
			p, ok := s.profiles[tm.UserID]
			if !ok || !strings.Contains(content, "@"+strings.ToLower(displayName(p))) {
				continue
			}
			if ch.IsPrivate && !s.inChannel(ch.ID, tm.UserID) {
				continue
			}
			out = append(out, models.Notification{
				UserID:  tm.UserID,
				Type:    models.NotificationMention,
				Title:   fmt.Sprintf("%s mentioned you in #%s", name, ch.Name),
				Content: ptr(preview),
				Data: models.NotificationData{
					MessageID: ptr(m.ID),
					AuthorID:  ptr(m.AuthorID),
					ChannelID: m.ChannelID,
					TeamID:    ptr(ch.TeamID),
				},
			})
		}
	}

	evs := make([]realtime.ChangeEvent, 0, len(out))
	for _, n := range out {
		n.ID = uuid.New()
		n.CreatedAt = m.CreatedAt
		s.notifications[n.ID] = n
		evs = append(evs, notificationEvent(realtime.KindInsert, n))
	}
	return evs
}

func notificationEvent(kind realtime.Kind, n models.Notification) realtime.ChangeEvent {
	record, _ := json.Marshal(n)
	return realtime.ChangeEvent{
		Kind:   kind,
		Table:  realtime.TableNotifications,
		ID:     n.ID,
		UserID: ptr(n.UserID),
		Record: record,
	}
}

// withRelations joins author and reactions. Callers hold s.mu.
func (s *Store) withRelations(m models.Message) models.MessageWithAuthor {
	out := models.MessageWithAuthor{
		Message:   m,
		Author:    s.profiles[m.AuthorID],
		Reactions: make([]models.ReactionWithUser, 0),
	}
	for _, rx := range s.reactions {
		if rx.MessageID == m.ID {
			out.Reactions = append(out.Reactions, models.ReactionWithUser{Reaction: rx, User: s.profiles[rx.UserID]})
		}
	}
	sort.Slice(out.Reactions, func(i, j int) bool {
		return out.Reactions[i].CreatedAt.Before(out.Reactions[j].CreatedAt)
	})
	return out
}

func (r *messageRepo) GetByID(_ context.Context, id uuid.UUID) (*models.MessageWithAuthor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	out := s.withRelations(m)
	return &out, nil
}

// topLevel returns the conversation's top-level messages newest first.
// Callers hold s.mu.
func (s *Store) topLevel(conv models.Conversation) []models.Message {
	out := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.ParentID == nil && m.Conversation() == conv {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return models.MessageLess(out[j], out[i]) })
	return out
}

func (r *messageRepo) List(_ context.Context, conv models.Conversation, offset, limit int) ([]models.MessageWithAuthor, int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.topLevel(conv)
	out := make([]models.MessageWithAuthor, 0, limit)
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, s.withRelations(all[i]))
	}
	return out, len(all), nil
}

func (r *messageRepo) ListBefore(_ context.Context, conv models.Conversation, cursor *models.Cursor, limit int) ([]models.MessageWithAuthor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MessageWithAuthor, 0, limit)
	for _, m := range s.topLevel(conv) {
		if len(out) == limit {
			break
		}
		if cursor != nil && !cursor.Before(m) {
			continue
		}
		out = append(out, s.withRelations(m))
	}
	return out, nil
}

func (r *messageRepo) ListReplies(_ context.Context, parentID uuid.UUID) ([]models.MessageWithAuthor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	replies := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.ParentID != nil && *m.ParentID == parentID {
			replies = append(replies, m)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return models.MessageLess(replies[i], replies[j]) })

	out := make([]models.MessageWithAuthor, 0, len(replies))
	for _, m := range replies {
		out = append(out, s.withRelations(m))
	}
	return out, nil
}

func (r *messageRepo) Latest(_ context.Context, conv models.Conversation) (*models.MessageWithAuthor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.topLevel(conv)
	if len(all) == 0 {
		return nil, nil
	}
	out := s.withRelations(all[0])
	return &out, nil
}

func (r *messageRepo) UpdateContent(_ context.Context, id uuid.UUID, content string) (*models.Message, error) {
	s := r.s
	s.mu.Lock()
	m, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	m.Content = content
	m.UpdatedAt = s.tick()
	s.messages[id] = m
	s.mu.Unlock()

	s.emit([]realtime.ChangeEvent{messageEvent(realtime.KindUpdate, m)})
	return &m, nil
}

func (r *messageRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	evs := s.deleteMessageLocked(id)
	s.mu.Unlock()
	s.emit(evs)
	return nil
}

// deleteMessageLocked removes a message with its replies and reactions.
// Callers hold s.mu.
func (s *Store) deleteMessageLocked(id uuid.UUID) []realtime.ChangeEvent {
	m, ok := s.messages[id]
	if !ok {
		return nil
	}
	var evs []realtime.ChangeEvent
	for _, reply := range s.messages {
		if reply.ParentID != nil && *reply.ParentID == id {
			evs = append(evs, s.deleteMessageLocked(reply.ID)...)
		}
	}
	for rid, rx := range s.reactions {
		if rx.MessageID == id {
			delete(s.reactions, rid)
		}
	}
	delete(s.messages, id)
	evs = append(evs, messageEvent(realtime.KindDelete, m))

	if m.ParentID != nil {
		if parent, ok := s.messages[*m.ParentID]; ok && parent.ThreadCount > 0 {
			parent.ThreadCount--
			s.messages[parent.ID] = parent
			evs = append(evs, messageEvent(realtime.KindUpdate, parent))
		}
	}
	return evs
}

const defaultSearchLimit = 20

func (r *messageRepo) Search(_ context.Context, userID uuid.UUID, q models.SearchQuery) ([]models.SearchResult, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(q.Query))
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits := make([]models.Message, 0)
	for _, m := range s.messages {
		if !s.canRead(m, userID) || !containsAll(strings.ToLower(m.Content), terms) {
			continue
		}
		if q.ChannelID != nil && (m.ChannelID == nil || *m.ChannelID != *q.ChannelID) {
			continue
		}
		if q.TeamID != nil {
			if m.ChannelID == nil || s.channels[*m.ChannelID].TeamID != *q.TeamID {
				continue
			}
		}
		hits = append(hits, m)
	}
	sort.Slice(hits, func(i, j int) bool { return models.MessageLess(hits[j], hits[i]) })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]models.SearchResult, 0, len(hits))
	for _, m := range hits {
		res := models.SearchResult{
			ID:         m.ID,
			Content:    m.Content,
			AuthorID:   m.AuthorID,
			ChannelID:  m.ChannelID,
			DMID:       m.DMID,
			CreatedAt:  m.CreatedAt,
			AuthorName: displayName(s.profiles[m.AuthorID]),
		}
		if m.ChannelID != nil {
			res.ChannelName = ptr(s.channels[*m.ChannelID].Name)
		}
		out = append(out, res)
	}
	return out, nil
}

func containsAll(s string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
