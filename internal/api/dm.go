package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

type DMHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewDMHandler(svc *service.Service, logger *zap.Logger) *DMHandler {
	return &DMHandler{svc: svc, logger: logger}
}

type openDMRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Open handles POST /v1/dms
func (h *DMHandler) Open(c *gin.Context) {
	var req openDMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dm, err := h.svc.CreateOrGetDirectMessage(c.Request.Context(), middleware.GetUserID(c), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, dm)
}

// List handles GET /v1/dms
func (h *DMHandler) List(c *gin.Context) {
	dms, err := h.svc.ListDirectMessages(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, dms)
}

// Get handles GET /v1/dms/:id
func (h *DMHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	dm, err := h.svc.GetDirectMessage(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, dm)
}

// Delete handles DELETE /v1/dms/:id
func (h *DMHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteDirectMessage(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Conversation deleted")
}
