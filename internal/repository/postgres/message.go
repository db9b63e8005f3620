package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/huddle/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id, content, type, author_id, channel_id, dm_id, parent_id,
	file_url, file_name, file_size, file_type, thread_count, created_at, updated_at`

// messageWithAuthorSelect joins the author; reactions are loaded separately
// by attachReactions.
const messageWithAuthorSelect = `
	SELECT m.id, m.content, m.type, m.author_id, m.channel_id, m.dm_id, m.parent_id,
	       m.file_url, m.file_name, m.file_size, m.file_type, m.thread_count, m.created_at, m.updated_at,
	       p.id, p.email, p.display_name, p.avatar_url, p.status, p.last_seen, p.created_at, p.updated_at
	FROM messages m
	JOIN profiles p ON p.id = m.author_id`

func messageFields(m *models.Message) []any {
	return []any{
		&m.ID, &m.Content, &m.Type, &m.AuthorID, &m.ChannelID, &m.DMID, &m.ParentID,
		&m.FileURL, &m.FileName, &m.FileSize, &m.FileType, &m.ThreadCount, &m.CreatedAt, &m.UpdatedAt,
	}
}

func scanMessageWithAuthor(row pgx.Row, m *models.MessageWithAuthor) error {
	p := &m.Author
	fields := append(messageFields(&m.Message),
		&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Status, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt)
	return row.Scan(fields...)
}

// conversationColumn is the foreign key column of conv's container.
func conversationColumn(conv models.Conversation) string {
	if conv.Kind == models.ConversationDM {
		return "m.dm_id"
	}
	return "m.channel_id"
}

func (s *MessageStore) Create(ctx context.Context, m models.Message) (*models.Message, error) {
	if m.Type == "" {
		m.Type = models.MessageText
	}
	query := `
		INSERT INTO messages (content, type, author_id, channel_id, dm_id, parent_id,
		                      file_url, file_name, file_size, file_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + messageColumns

	var out models.Message
	err := s.pool.QueryRow(ctx, query,
		m.Content, m.Type, m.AuthorID, m.ChannelID, m.DMID, m.ParentID,
		m.FileURL, m.FileName, m.FileSize, m.FileType,
	).Scan(messageFields(&out)...)
	if err != nil {
		return nil, wrap("insert message", err)
	}
	return &out, nil
}

func (s *MessageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.MessageWithAuthor, error) {
	var m models.MessageWithAuthor
	if err := scanMessageWithAuthor(s.pool.QueryRow(ctx, messageWithAuthorSelect+` WHERE m.id = $1`, id), &m); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	msgs := []models.MessageWithAuthor{m}
	if err := s.attachReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return &msgs[0], nil
}

func (s *MessageStore) List(ctx context.Context, conv models.Conversation, offset, limit int) ([]models.MessageWithAuthor, int, error) {
	col := conversationColumn(conv)

	var total int
	countQuery := `SELECT count(*) FROM messages m WHERE ` + col + ` = $1 AND m.parent_id IS NULL`
	if err := s.pool.QueryRow(ctx, countQuery, conv.ID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := messageWithAuthorSelect + `
		WHERE ` + col + ` = $1 AND m.parent_id IS NULL
		ORDER BY m.created_at DESC, m.id DESC
		OFFSET $2 LIMIT $3`
	msgs, err := s.query(ctx, query, conv.ID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// ListBefore pages with a (created_at, id) keyset instead of an offset.
//
// Why a keyset here when List uses OFFSET?
//   - Load-more runs while new messages keep arriving. With OFFSET every
//     insert at the head shifts the window by one, so the next page
//     repeats a row or skips one.
//   - The row-value comparison (created_at, id) < ($2, $3) matches the
//     ORDER BY exactly, so ties on created_at are broken by id and no row
//     is lost between pages.
//   - The partial (container, created_at DESC, id DESC) indexes let
//     Postgres seek straight to the cursor and stop after LIMIT rows,
//     however deep the history is.
func (s *MessageStore) ListBefore(ctx context.Context, conv models.Conversation, cursor *models.Cursor, limit int) ([]models.MessageWithAuthor, error) {
	col := conversationColumn(conv)

	if cursor == nil {
		query := messageWithAuthorSelect + `
			WHERE ` + col + ` = $1 AND m.parent_id IS NULL
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2`
		return s.query(ctx, query, conv.ID, limit)
	}

	query := messageWithAuthorSelect + `
		WHERE ` + col + ` = $1 AND m.parent_id IS NULL
		  AND (m.created_at, m.id) < ($2, $3)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $4`
	return s.query(ctx, query, conv.ID, cursor.CreatedAt, cursor.ID, limit)
}

func (s *MessageStore) ListReplies(ctx context.Context, parentID uuid.UUID) ([]models.MessageWithAuthor, error) {
	query := messageWithAuthorSelect + `
		WHERE m.parent_id = $1
		ORDER BY m.created_at, m.id`
	return s.query(ctx, query, parentID)
}

func (s *MessageStore) Latest(ctx context.Context, conv models.Conversation) (*models.MessageWithAuthor, error) {
	msgs, err := s.ListBefore(ctx, conv, nil, 1)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

func (s *MessageStore) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Message, error) {
	query := `
		UPDATE messages SET content = $2, updated_at = clock_timestamp()
		WHERE id = $1
		RETURNING ` + messageColumns

	var m models.Message
	if err := s.pool.QueryRow(ctx, query, id, content).Scan(messageFields(&m)...); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update message: %w", err)
	}
	return &m, nil
}

// Delete cascades to replies and reactions; the thread_count trigger
// adjusts the parent of a deleted reply.
func (s *MessageStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

const defaultSearchLimit = 20

func (s *MessageStore) Search(ctx context.Context, userID uuid.UUID, q models.SearchQuery) ([]models.SearchResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := s.pool.Query(ctx, `SELECT * FROM search_messages($1, $2, $3, $4, $5)`,
		userID, q.Query, q.TeamID, q.ChannelID, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0)
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(
			&r.ID, &r.Content, &r.AuthorID, &r.ChannelID, &r.DMID,
			&r.CreatedAt, &r.AuthorName, &r.ChannelName,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

func (s *MessageStore) query(ctx context.Context, query string, args ...any) ([]models.MessageWithAuthor, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]models.MessageWithAuthor, 0)
	for rows.Next() {
		var m models.MessageWithAuthor
		if err := scanMessageWithAuthor(rows, &m); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if err := s.attachReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// attachReactions loads the reactions of msgs in one query.
//
// Why not a JOIN in the message query?
//   - A message with five reactions would come back as five rows, and
//     LIMIT would count reactions instead of messages.
//   - One extra round trip with ANY($1) stays constant no matter how many
//     messages are on the page.
func (s *MessageStore) attachReactions(ctx context.Context, msgs []models.MessageWithAuthor) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(msgs))
	index := make(map[uuid.UUID]int, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
		index[msgs[i].ID] = i
		msgs[i].Reactions = make([]models.ReactionWithUser, 0)
	}

	query := `
		SELECT r.id, r.message_id, r.user_id, r.emoji, r.created_at,
		       p.id, p.email, p.display_name, p.avatar_url, p.status, p.last_seen, p.created_at, p.updated_at
		FROM message_reactions r
		JOIN profiles p ON p.id = r.user_id
		WHERE r.message_id = ANY($1)
		ORDER BY r.created_at, r.id`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.ReactionWithUser
		p := &r.User
		if err := rows.Scan(
			&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt,
			&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Status, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan reaction: %w", err)
		}
		i := index[r.MessageID]
		msgs[i].Reactions = append(msgs[i].Reactions, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reactions: %w", err)
	}
	return nil
}
