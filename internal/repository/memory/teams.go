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

type teamRepo struct{ s *Store }

func (r *teamRepo) slugTaken(slug string, except uuid.UUID) bool {
	for _, t := range r.s.teams {
		if t.Slug == slug && t.ID != except {
			return true
		}
	}
	return false
}

func (r *teamRepo) Create(_ context.Context, createdBy uuid.UUID, in models.TeamInput) (*models.Team, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.slugTaken(in.Slug, uuid.Nil) {
		return nil, fmt.Errorf("insert team: slug %q: %w", in.Slug, repository.ErrDuplicate)
	}
	now := s.tick()
	t := models.Team{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Slug:        in.Slug,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.teams[t.ID] = t

	// on_team_created: owner membership and the general channel.
	owner := models.TeamMember{ID: uuid.New(), TeamID: t.ID, UserID: createdBy, Role: models.RoleOwner, JoinedAt: now}
	s.teamMembers[owner.ID] = owner
	general := models.Channel{
		ID:          uuid.New(),
		TeamID:      t.ID,
		Name:        models.GeneralChannel,
		Description: ptr("General discussion"),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.channels[general.ID] = general

	return &t, nil
}

func (r *teamRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *teamRepo) GetBySlug(_ context.Context, slug string) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.teams {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *teamRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Team, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	memberships := make([]models.TeamMember, 0)
	for _, m := range s.teamMembers {
		if m.UserID == userID {
			memberships = append(memberships, m)
		}
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i].JoinedAt.Before(memberships[j].JoinedAt) })

	out := make([]models.Team, 0, len(memberships))
	for _, m := range memberships {
		if t, ok := s.teams[m.TeamID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *teamRepo) Update(_ context.Context, id uuid.UUID, patch models.TeamUpdate) (*models.Team, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, nil
	}
	if patch.Slug != nil && r.slugTaken(*patch.Slug, id) {
		return nil, fmt.Errorf("update team: slug %q: %w", *patch.Slug, repository.ErrDuplicate)
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = ptr(*patch.Description)
	}
	if patch.Slug != nil {
		t.Slug = *patch.Slug
	}
	if patch.AvatarURL != nil {
		t.AvatarURL = ptr(*patch.AvatarURL)
	}
	t.UpdatedAt = s.tick()
	s.teams[id] = t
	return &t, nil
}

func (r *teamRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	var evs []realtime.ChangeEvent
	delete(s.teams, id)
	for mid, m := range s.teamMembers {
		if m.TeamID == id {
			delete(s.teamMembers, mid)
		}
	}
	for cid, ch := range s.channels {
		if ch.TeamID == id {
			evs = append(evs, s.deleteChannelLocked(cid)...)
		}
	}
	for fid, f := range s.files {
		if f.TeamID == id {
			delete(s.files, fid)
		}
	}
	s.mu.Unlock()
	s.emit(evs)
	return nil
}

func (r *teamRepo) Stats(_ context.Context, id uuid.UUID) (*models.TeamStats, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var st models.TeamStats
	for _, m := range s.teamMembers {
		if m.TeamID != id {
			continue
		}
		st.MemberCount++
		if p, ok := s.presence[m.UserID]; ok && p.IsOnline(now) {
			st.OnlineMembers++
		}
	}
	for _, ch := range s.channels {
		if ch.TeamID == id {
			st.ChannelCount++
		}
	}
	for _, m := range s.messages {
		if m.ChannelID == nil {
			continue
		}
		if ch, ok := s.channels[*m.ChannelID]; ok && ch.TeamID == id {
			st.MessageCount++
		}
	}
	return &st, nil
}

type teamMemberRepo struct{ s *Store }

func (r *teamMemberRepo) Get(_ context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.teamMembers {
		if m.TeamID == teamID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *teamMemberRepo) Add(_ context.Context, teamID, userID uuid.UUID, role models.TeamRole) (*models.TeamMember, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberRole(teamID, userID); ok {
		return nil, fmt.Errorf("insert team member: %w", repository.ErrDuplicate)
	}
	m := models.TeamMember{ID: uuid.New(), TeamID: teamID, UserID: userID, Role: role, JoinedAt: s.tick()}
	s.teamMembers[m.ID] = m
	return &m, nil
}

func (r *teamMemberRepo) Remove(_ context.Context, teamID, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.teamMembers {
		if m.TeamID == teamID && m.UserID == userID {
			delete(s.teamMembers, id)
		}
	}
	return nil
}

func (r *teamMemberRepo) List(_ context.Context, teamID uuid.UUID) ([]models.TeamMemberWithProfile, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TeamMemberWithProfile, 0)
	for _, m := range s.teamMembers {
		if m.TeamID == teamID {
			out = append(out, models.TeamMemberWithProfile{TeamMember: m, Profile: s.profiles[m.UserID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}
