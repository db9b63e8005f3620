package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

type MessageHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewMessageHandler(svc *service.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

// Send handles POST /v1/messages
func (h *MessageHandler) Send(c *gin.Context) {
	var req models.MessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// ListChannel handles GET /v1/channels/:id/messages
func (h *MessageHandler) ListChannel(c *gin.Context) {
	h.list(c, models.ConversationChannel)
}

// ListDM handles GET /v1/dms/:id/messages
func (h *MessageHandler) ListDM(c *gin.Context) {
	h.list(c, models.ConversationDM)
}

// list serves two paging styles:
//
//	?page=2&limit=50                   offset pages, oldest first, with pagination
//	?before=<RFC3339>&before_id=<uuid> keyset window older than the cursor, newest first
func (h *MessageHandler) list(c *gin.Context, kind models.ConversationKind) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	conv := models.Conversation{Kind: kind, ID: id}
	userID := middleware.GetUserID(c)

	if before := c.Query("before"); before != "" {
		at, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			badRequest(c, "invalid 'before' parameter")
			return
		}
		cursorID, err := uuid.Parse(c.Query("before_id"))
		if err != nil {
			badRequest(c, "invalid 'before_id' parameter")
			return
		}
		msgs, err := h.svc.GetMessagesBefore(c.Request.Context(), userID, conv,
			&models.Cursor{CreatedAt: at, ID: cursorID}, queryInt(c, "limit"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, msgs)
		return
	}

	page, err := h.svc.GetMessages(c.Request.Context(), userID, conv, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	okPage(c, page.Messages, page.Pagination)
}

// Get handles GET /v1/messages/:id
func (h *MessageHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	msg, err := h.svc.GetMessage(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}

// Replies handles GET /v1/messages/:id/replies
func (h *MessageHandler) Replies(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	replies, err := h.svc.GetMessageReplies(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, replies)
}

type updateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Update handles PATCH /v1/messages/:id
func (h *MessageHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.svc.UpdateMessage(c.Request.Context(), middleware.GetUserID(c), id, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}

// Delete handles DELETE /v1/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Message deleted")
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// React handles POST /v1/messages/:id/reactions
func (h *MessageHandler) React(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	added, err := h.svc.ToggleReaction(c.Request.Context(), middleware.GetUserID(c), id, req.Emoji)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"added": added})
}

// Search handles GET /v1/messages/search?q=...&team_id=...&channel_id=...
func (h *MessageHandler) Search(c *gin.Context) {
	q := models.SearchQuery{Query: c.Query("q"), Limit: queryInt(c, "limit")}
	var valid bool
	if q.TeamID, valid = queryID(c, "team_id"); !valid {
		return
	}
	if q.ChannelID, valid = queryID(c, "channel_id"); !valid {
		return
	}
	results, err := h.svc.SearchMessages(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, results)
}
