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
	"go.uber.org/zap"
)

// CreateTeam makes the caller the owner. The backend adds the general
// channel.
func (s *Service) CreateTeam(ctx context.Context, userID uuid.UUID, in models.TeamInput) (_ *models.Team, err error) {
	defer s.observe("create_team", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.b.Teams.GetBySlug(ctx, in.Slug)
	if err != nil {
		return nil, s.fail("Failed to create team", err)
	}
	if existing != nil {
		return nil, apperr.Validation("Team slug already taken")
	}

	team, err := s.b.Teams.Create(ctx, userID, in)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Validation("Team slug already taken")
	}
	if err != nil {
		return nil, s.fail("Failed to create team", err)
	}
	s.publish(ctx, events.Event{Action: events.TeamCreated, ActorID: userID, TeamID: &team.ID})
	return team, nil
}

func (s *Service) loadTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.b.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, s.fail("Failed to load team", err)
	}
	if team == nil {
		return nil, apperr.NotFound("Team not found")
	}
	return team, nil
}

// GetTeam returns the team with its members and the channels the caller
// can see.
func (s *Service) GetTeam(ctx context.Context, userID, teamID uuid.UUID) (_ *models.TeamWithMembers, err error) {
	defer s.observe("get_team", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.teamMember(ctx, teamID, userID); err != nil {
		return nil, err
	}

	members, err := s.b.TeamMembers.List(ctx, teamID)
	if err != nil {
		return nil, s.fail("Failed to load team members", err)
	}
	channels, err := s.b.Channels.ListVisible(ctx, teamID, userID)
	if err != nil {
		return nil, s.fail("Failed to load channels", err)
	}
	return &models.TeamWithMembers{Team: *team, Members: members, Channels: channels}, nil
}

func (s *Service) ListTeams(ctx context.Context, userID uuid.UUID) (_ []models.Team, err error) {
	defer s.observe("list_teams", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	teams, err := s.b.Teams.ListForUser(ctx, userID)
	if err != nil {
		return nil, s.fail("Failed to load teams", err)
	}
	return teams, nil
}

// UpdateTeam is limited to owners and admins.
func (s *Service) UpdateTeam(ctx context.Context, userID, teamID uuid.UUID, patch models.TeamUpdate) (_ *models.Team, err error) {
	defer s.observe("update_team", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.v.Struct(patch); err != nil {
		return nil, err
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	m, err := s.teamMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if !m.Role.CanManage() {
		return nil, apperr.AccessDenied("Insufficient permissions")
	}

	if patch.Slug != nil && *patch.Slug != team.Slug {
		other, err := s.b.Teams.GetBySlug(ctx, *patch.Slug)
		if err != nil {
			return nil, s.fail("Failed to update team", err)
		}
		if other != nil {
			return nil, apperr.Validation("Team slug already taken")
		}
	}

	updated, err := s.b.Teams.Update(ctx, teamID, patch)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Validation("Team slug already taken")
	}
	if err != nil {
		return nil, s.fail("Failed to update team", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Team not found")
	}
	s.publish(ctx, events.Event{Action: events.TeamUpdated, ActorID: userID, TeamID: &teamID})
	return updated, nil
}

// DeleteTeam is reserved to the creator; admins are refused like anyone
// else. Stored blobs of the team's files are removed best-effort.
func (s *Service) DeleteTeam(ctx context.Context, userID, teamID uuid.UUID) (err error) {
	defer s.observe("delete_team", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.CreatedBy != userID {
		return apperr.AccessDenied("Only the team creator can delete the team")
	}

	keys, err := s.teamFileKeys(ctx, teamID)
	if err != nil {
		return s.fail("Failed to delete team", err)
	}
	if err := s.b.Teams.Delete(ctx, teamID); err != nil {
		return s.fail("Failed to delete team", err)
	}
	if len(keys) > 0 && s.store != nil {
		if err := s.store.Remove(ctx, keys...); err != nil {
			s.logger.Warn("failed to remove team files from storage",
				zap.String("team_id", teamID.String()),
				zap.Int("files", len(keys)),
				zap.Error(err),
			)
		}
	}
	s.publish(ctx, events.Event{Action: events.TeamDeleted, ActorID: userID, TeamID: &teamID})
	return nil
}

func (s *Service) teamFileKeys(ctx context.Context, teamID uuid.UUID) ([]string, error) {
	const batch = 100
	var keys []string
	for offset := 0; ; offset += batch {
		files, total, err := s.b.Files.ListByTeam(ctx, teamID, offset, batch)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if key, ok := s.keyFromURL(f.URL); ok {
				keys = append(keys, key)
			}
		}
		if offset+batch >= total || len(files) == 0 {
			return keys, nil
		}
	}
}

// JoinTeam resolves an invite code, which is the team's slug.
func (s *Service) JoinTeam(ctx context.Context, userID uuid.UUID, inviteCode string) (_ *models.Team, err error) {
	defer s.observe("join_team", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	code := strings.ToLower(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, apperr.Validation("Invite code is required")
	}

	team, err := s.b.Teams.GetBySlug(ctx, code)
	if err != nil {
		return nil, s.fail("Failed to join team", err)
	}
	if team == nil {
		return nil, apperr.NotFound("Invalid invite code")
	}
	existing, err := s.b.TeamMembers.Get(ctx, team.ID, userID)
	if err != nil {
		return nil, s.fail("Failed to join team", err)
	}
	if existing != nil {
		return nil, apperr.Validation("Already a member of this team")
	}

	_, err = s.b.TeamMembers.Add(ctx, team.ID, userID, models.RoleMember)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Validation("Already a member of this team")
	}
	if err != nil {
		return nil, s.fail("Failed to join team", err)
	}
	s.publish(ctx, events.Event{Action: events.TeamJoined, ActorID: userID, TeamID: &team.ID})
	return team, nil
}

// LeaveTeam is refused to the owner, who must delete the team instead.
func (s *Service) LeaveTeam(ctx context.Context, userID, teamID uuid.UUID) (err error) {
	defer s.observe("leave_team", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	m, err := s.teamMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleOwner {
		return apperr.Validation("Owners cannot leave teams. Transfer ownership or delete the team.")
	}
	if err := s.b.TeamMembers.Remove(ctx, teamID, userID); err != nil {
		return s.fail("Failed to leave team", err)
	}
	s.publish(ctx, events.Event{Action: events.TeamLeft, ActorID: userID, TeamID: &teamID})
	return nil
}

func (s *Service) TeamStats(ctx context.Context, userID, teamID uuid.UUID) (_ *models.TeamStats, err error) {
	defer s.observe("team_stats", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.loadTeam(ctx, teamID); err != nil {
		return nil, err
	}
	if _, err := s.teamMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	st, err := s.b.Teams.Stats(ctx, teamID)
	if err != nil {
		return nil, s.fail("Failed to load team stats", err)
	}
	return st, nil
}
