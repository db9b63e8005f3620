package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
)

type channelRepo struct{ s *Store }

func (r *channelRepo) nameTaken(teamID uuid.UUID, name string, except uuid.UUID) bool {
	for _, ch := range r.s.channels {
		if ch.TeamID == teamID && ch.Name == name && ch.ID != except {
			return true
		}
	}
	return false
}

func (r *channelRepo) Create(_ context.Context, createdBy uuid.UUID, in models.ChannelInput) (*models.Channel, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[in.TeamID]; !ok {
		return nil, fmt.Errorf("insert channel: team %s does not exist", in.TeamID)
	}
	if r.nameTaken(in.TeamID, in.Name, uuid.Nil) {
		return nil, fmt.Errorf("insert channel: name %q: %w", in.Name, repository.ErrDuplicate)
	}
	now := s.tick()
	ch := models.Channel{
		ID:          uuid.New(),
		TeamID:      in.TeamID,
		Name:        in.Name,
		Description: in.Description,
		IsPrivate:   in.IsPrivate,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.channels[ch.ID] = ch
	return &ch, nil
}

func (r *channelRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ch, ok := r.s.channels[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *channelRepo) GetByName(_ context.Context, teamID uuid.UUID, name string) (*models.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ch := range r.s.channels {
		if ch.TeamID == teamID && ch.Name == name {
			return &ch, nil
		}
	}
	return nil, nil
}

func (r *channelRepo) ListVisible(_ context.Context, teamID, userID uuid.UUID) ([]models.Channel, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Channel, 0)
	for _, ch := range s.channels {
		if ch.TeamID != teamID {
			continue
		}
		if ch.IsPrivate && !s.inChannel(ch.ID, userID) {
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *channelRepo) Update(_ context.Context, id uuid.UUID, patch models.ChannelUpdate) (*models.Channel, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, nil
	}
	if patch.Name != nil && r.nameTaken(ch.TeamID, *patch.Name, id) {
		return nil, fmt.Errorf("update channel: name %q: %w", *patch.Name, repository.ErrDuplicate)
	}
	if patch.Name != nil {
		ch.Name = *patch.Name
	}
	if patch.Description != nil {
		ch.Description = ptr(*patch.Description)
	}
	if patch.IsPrivate != nil {
		ch.IsPrivate = *patch.IsPrivate
	}
	ch.UpdatedAt = s.tick()
	s.channels[id] = ch
	return &ch, nil
}

func (r *channelRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	evs := s.deleteChannelLocked(id)
	s.mu.Unlock()
	s.emit(evs)
	return nil
}

// deleteChannelLocked cascades to members and messages. Callers hold s.mu.
func (s *Store) deleteChannelLocked(id uuid.UUID) []realtime.ChangeEvent {
	delete(s.channels, id)
	for mid, m := range s.channelMembers {
		if m.ChannelID == id {
			delete(s.channelMembers, mid)
		}
	}
	var evs []realtime.ChangeEvent
	for _, m := range s.messages {
		if m.ChannelID != nil && *m.ChannelID == id && m.ParentID == nil {
			evs = append(evs, s.deleteMessageLocked(m.ID)...)
		}
	}
	return evs
}

type channelMemberRepo struct{ s *Store }

func (r *channelMemberRepo) AddMember(_ context.Context, channelID, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inChannel(channelID, userID) {
		return nil
	}
	m := models.ChannelMember{ID: uuid.New(), ChannelID: channelID, UserID: userID, JoinedAt: s.tick()}
	s.channelMembers[m.ID] = m
	return nil
}

func (r *channelMemberRepo) RemoveMember(_ context.Context, channelID, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.channelMembers {
		if m.ChannelID == channelID && m.UserID == userID {
			delete(s.channelMembers, id)
		}
	}
	return nil
}

func (r *channelMemberRepo) ListMembers(_ context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.ChannelMember, 0)
	for _, m := range r.s.channelMembers {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *channelMemberRepo) IsMember(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.inChannel(channelID, userID), nil
}
