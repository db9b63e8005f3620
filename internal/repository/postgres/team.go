package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type TeamStore struct {
	pool *pgxpool.Pool
}

func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

const teamColumns = `id, name, description, avatar_url, slug, created_by, created_at, updated_at`

func scanTeam(row pgx.Row, t *models.Team) error {
	return row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.AvatarURL,
		&t.Slug,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// Create relies on the team_created trigger for the owner membership and
// the general channel.
func (s *TeamStore) Create(ctx context.Context, createdBy uuid.UUID, in models.TeamInput) (*models.Team, error) {
	query := `
		INSERT INTO teams (name, description, slug, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + teamColumns

	var t models.Team
	if err := scanTeam(s.pool.QueryRow(ctx, query, in.Name, in.Description, in.Slug, createdBy), &t); err != nil {
		return nil, wrap("insert team", err)
	}
	return &t, nil
}

func (s *TeamStore) get(ctx context.Context, where string, arg any) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE ` + where + ` = $1`

	var t models.Team
	if err := scanTeam(s.pool.QueryRow(ctx, query, arg), &t); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &t, nil
}

func (s *TeamStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return s.get(ctx, "id", id)
}

func (s *TeamStore) GetBySlug(ctx context.Context, slug string) (*models.Team, error) {
	return s.get(ctx, "slug", slug)
}

func (s *TeamStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Team, error) {
	query := `
		SELECT t.id, t.name, t.description, t.avatar_url, t.slug, t.created_by, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.user_id = $1
		ORDER BY tm.joined_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := scanTeam(rows, &t); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}

func (s *TeamStore) Update(ctx context.Context, id uuid.UUID, patch models.TeamUpdate) (*models.Team, error) {
	query := `
		UPDATE teams SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			slug        = COALESCE($4, slug),
			avatar_url  = COALESCE($5, avatar_url),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + teamColumns

	var t models.Team
	err := scanTeam(s.pool.QueryRow(ctx, query, id, patch.Name, patch.Description, patch.Slug, patch.AvatarURL), &t)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, wrap("update team", err)
	}
	return &t, nil
}

// Delete cascades through foreign keys.
func (s *TeamStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

func (s *TeamStore) Stats(ctx context.Context, id uuid.UUID) (*models.TeamStats, error) {
	var st models.TeamStats
	err := s.pool.QueryRow(ctx, `SELECT * FROM get_team_stats($1)`, id).Scan(
		&st.MemberCount,
		&st.ChannelCount,
		&st.MessageCount,
		&st.OnlineMembers,
	)
	if err != nil {
		return nil, fmt.Errorf("team stats: %w", err)
	}
	return &st, nil
}

type TeamMemberStore struct {
	pool *pgxpool.Pool
}

func NewTeamMemberStore(pool *pgxpool.Pool) *TeamMemberStore {
	return &TeamMemberStore{pool: pool}
}

func (s *TeamMemberStore) Get(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2`

	var m models.TeamMember
	err := s.pool.QueryRow(ctx, query, teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team member: %w", err)
	}
	return &m, nil
}

func (s *TeamMemberStore) Add(ctx context.Context, teamID, userID uuid.UUID, role models.TeamRole) (*models.TeamMember, error) {
	query := `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, team_id, user_id, role, joined_at`

	var m models.TeamMember
	err := s.pool.QueryRow(ctx, query, teamID, userID, role).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, wrap("insert team member", err)
	}
	return &m, nil
}

func (s *TeamMemberStore) Remove(ctx context.Context, teamID, userID uuid.UUID) error {
	query := `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`
	if _, err := s.pool.Exec(ctx, query, teamID, userID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	return nil
}

func (s *TeamMemberStore) List(ctx context.Context, teamID uuid.UUID) ([]models.TeamMemberWithProfile, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.joined_at,
		       p.id, p.email, p.display_name, p.avatar_url, p.status, p.last_seen, p.created_at, p.updated_at
		FROM team_members tm
		JOIN profiles p ON p.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at`

	rows, err := s.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	members := make([]models.TeamMemberWithProfile, 0)
	for rows.Next() {
		var m models.TeamMemberWithProfile
		p := &m.Profile
		if err := rows.Scan(
			&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt,
			&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Status, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return members, nil
}
