package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/repository"
)

const (
	maxContentLength = 4000
	maxEmojiLength   = 32
	defaultSearch    = 20
	maxSearch        = 50
)

// MessagePage is one offset page of a conversation, oldest first.
type MessagePage struct {
	Messages   []models.MessageWithAuthor `json:"messages"`
	Pagination models.Pagination          `json:"pagination"`
}

// SendMessage posts into exactly one channel or direct message. A reply
// to a reply is attached to the thread root.
func (s *Service) SendMessage(ctx context.Context, userID uuid.UUID, in models.MessageInput) (_ *models.MessageWithAuthor, err error) {
	defer s.observe("send_message", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if in.ChannelID != nil && in.DMID != nil {
		return nil, apperr.Validation("Message cannot belong to both channel and direct message")
	}
	conv, ok := in.Conversation()
	if !ok {
		return nil, apperr.Validation("Message must belong to either a channel or direct message")
	}
	in.Content = strings.TrimSpace(in.Content)
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}
	if in.Content == "" && in.FileID == nil {
		return nil, apperr.Validation("Message content is required")
	}

	scope, err := s.conversationAccess(ctx, conv, userID)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		Content:   in.Content,
		Type:      in.Type,
		AuthorID:  userID,
		ChannelID: in.ChannelID,
		DMID:      in.DMID,
	}
	if in.ParentID != nil {
		parent, err := s.b.Messages.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, s.fail("Failed to send message", err)
		}
		if parent == nil {
			return nil, apperr.NotFound("Parent message not found")
		}
		if parent.Conversation() != conv {
			return nil, apperr.Validation("Reply must be in the same conversation as its parent")
		}
		root := parent.ID
		if parent.ParentID != nil {
			root = *parent.ParentID
		}
		msg.ParentID = &root
	}
	if in.FileID != nil {
		if err := s.attachFile(ctx, &msg, *in.FileID, scope); err != nil {
			return nil, err
		}
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}

	created, err := s.b.Messages.Create(ctx, msg)
	if err != nil {
		return nil, s.fail("Failed to send message", err)
	}
	full, err := s.b.Messages.GetByID(ctx, created.ID)
	if err != nil {
		return nil, s.fail("Failed to load message", err)
	}
	if full == nil {
		return nil, apperr.NotFound("Message not found")
	}

	scope.Action = events.MessageSent
	s.publish(ctx, scope)
	return full, nil
}

// attachFile copies an uploaded file's metadata onto msg. Only the
// uploader may attach it, and inside a channel it must belong to the
// channel's team.
func (s *Service) attachFile(ctx context.Context, msg *models.Message, fileID uuid.UUID, scope events.Event) error {
	f, err := s.b.Files.GetByID(ctx, fileID)
	if err != nil {
		return s.fail("Failed to send message", err)
	}
	if f == nil {
		return apperr.NotFound("File not found")
	}
	if f.UploadedBy != msg.AuthorID {
		return apperr.AccessDenied("Access denied")
	}
	if scope.TeamID != nil && f.TeamID != *scope.TeamID {
		return apperr.Validation("File belongs to another team")
	}
	msg.FileURL = &f.URL
	msg.FileName = &f.Name
	msg.FileSize = &f.Size
	msg.FileType = &f.Type
	if msg.Type == "" || msg.Type == models.MessageText {
		msg.Type = models.MessageTypeFor(f.Type)
	}
	return nil
}

// GetMessages returns one offset page of top-level messages. Page 1 holds
// the newest limit messages; each page is returned oldest first.
func (s *Service) GetMessages(ctx context.Context, userID uuid.UUID, conv models.Conversation, page, limit int) (_ *MessagePage, err error) {
	defer s.observe("get_messages", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.conversationAccess(ctx, conv, userID); err != nil {
		return nil, err
	}
	page, limit = pageBounds(page, limit, s.pageSize)

	rows, total, err := s.b.Messages.List(ctx, conv, (page-1)*limit, limit)
	if err != nil {
		return nil, s.fail("Failed to load messages", err)
	}
	slices.Reverse(rows)
	return &MessagePage{Messages: rows, Pagination: models.NewPagination(page, limit, total)}, nil
}

// GetMessagesBefore returns up to limit top-level messages strictly older
// than cursor, newest first. A nil cursor starts at the latest message.
func (s *Service) GetMessagesBefore(ctx context.Context, userID uuid.UUID, conv models.Conversation, cursor *models.Cursor, limit int) (_ []models.MessageWithAuthor, err error) {
	defer s.observe("get_messages_before", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.conversationAccess(ctx, conv, userID); err != nil {
		return nil, err
	}
	_, limit = pageBounds(1, limit, s.pageSize)

	rows, err := s.b.Messages.ListBefore(ctx, conv, cursor, limit)
	if err != nil {
		return nil, s.fail("Failed to load messages", err)
	}
	return rows, nil
}

// loadMessage fetches a message and authorizes the caller on its
// conversation.
func (s *Service) loadMessage(ctx context.Context, id, userID uuid.UUID) (*models.MessageWithAuthor, events.Event, error) {
	m, err := s.b.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, events.Event{}, s.fail("Failed to load message", err)
	}
	if m == nil {
		return nil, events.Event{}, apperr.NotFound("Message not found")
	}
	scope, err := s.conversationAccess(ctx, m.Conversation(), userID)
	if err != nil {
		return nil, events.Event{}, err
	}
	return m, scope, nil
}

func (s *Service) GetMessage(ctx context.Context, userID, messageID uuid.UUID) (_ *models.MessageWithAuthor, err error) {
	defer s.observe("get_message", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	m, _, err := s.loadMessage(ctx, messageID, userID)
	return m, err
}

// GetMessageReplies returns the thread under messageID, oldest first.
func (s *Service) GetMessageReplies(ctx context.Context, userID, messageID uuid.UUID) (_ []models.MessageWithAuthor, err error) {
	defer s.observe("get_message_replies", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, _, err := s.loadMessage(ctx, messageID, userID); err != nil {
		return nil, err
	}
	replies, err := s.b.Messages.ListReplies(ctx, messageID)
	if err != nil {
		return nil, s.fail("Failed to load replies", err)
	}
	return replies, nil
}

func (s *Service) UpdateMessage(ctx context.Context, userID, messageID uuid.UUID, content string) (_ *models.Message, err error) {
	defer s.observe("update_message", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Message content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, apperr.Validation("Message is too long")
	}
	m, scope, err := s.loadMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if m.AuthorID != userID {
		return nil, apperr.AccessDenied("Can only edit your own messages")
	}

	updated, err := s.b.Messages.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, s.fail("Failed to update message", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Message not found")
	}
	scope.Action = events.MessageEdited
	s.publish(ctx, scope)
	return updated, nil
}

func (s *Service) DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) (err error) {
	defer s.observe("delete_message", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	m, scope, err := s.loadMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if m.AuthorID != userID {
		return apperr.AccessDenied("Can only delete your own messages")
	}
	if err := s.b.Messages.Delete(ctx, messageID); err != nil {
		return s.fail("Failed to delete message", err)
	}
	scope.Action = events.MessageDeleted
	s.publish(ctx, scope)
	return nil
}

// ToggleReaction adds the caller's emoji to a message, or removes it if
// already present. It reports whether the reaction is now present.
func (s *Service) ToggleReaction(ctx context.Context, userID, messageID uuid.UUID, emoji string) (_ bool, err error) {
	defer s.observe("toggle_reaction", &err)
	if err := requireUser(userID); err != nil {
		return false, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		return false, apperr.Validation("Invalid emoji")
	}
	_, scope, err := s.loadMessage(ctx, messageID, userID)
	if err != nil {
		return false, err
	}
	scope.Action = events.ReactionToggled

	existing, err := s.b.Reactions.Find(ctx, messageID, userID, emoji)
	if err != nil {
		return false, s.fail("Failed to update reaction", err)
	}
	if existing != nil {
		if err := s.b.Reactions.Remove(ctx, existing.ID); err != nil {
			return false, s.fail("Failed to update reaction", err)
		}
		s.publish(ctx, scope)
		return false, nil
	}

	_, err = s.b.Reactions.Add(ctx, messageID, userID, emoji)
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return false, s.fail("Failed to update reaction", err)
	}
	s.publish(ctx, scope)
	return true, nil
}

// SearchMessages runs a full-text search over the conversations the
// caller can read, optionally narrowed to a team or channel.
func (s *Service) SearchMessages(ctx context.Context, userID uuid.UUID, q models.SearchQuery) (_ []models.SearchResult, err error) {
	defer s.observe("search_messages", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	q.Query = strings.TrimSpace(q.Query)
	if err := s.v.Struct(q); err != nil {
		return nil, err
	}
	switch {
	case q.Limit <= 0:
		q.Limit = defaultSearch
	case q.Limit > maxSearch:
		q.Limit = maxSearch
	}
	if q.TeamID != nil {
		if _, err := s.teamMember(ctx, *q.TeamID, userID); err != nil {
			return nil, err
		}
	}
	if q.ChannelID != nil {
		if _, _, err := s.channelAccess(ctx, *q.ChannelID, userID); err != nil {
			return nil, err
		}
	}

	results, err := s.b.Messages.Search(ctx, userID, q)
	if err != nil {
		return nil, s.fail("Failed to search messages", err)
	}
	return results, nil
}
