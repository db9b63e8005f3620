package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

type ChannelHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewChannelHandler(svc *service.Service, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{svc: svc, logger: logger}
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req models.ChannelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ch, err := h.svc.CreateChannel(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, ch)
}

// List handles GET /v1/teams/:id/channels
func (h *ChannelHandler) List(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	channels, err := h.svc.ListChannels(c.Request.Context(), middleware.GetUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, channels)
}

// Get handles GET /v1/channels/:id
func (h *ChannelHandler) Get(c *gin.Context) {
	channelID, valid := pathID(c, "id")
	if !valid {
		return
	}
	ch, err := h.svc.GetChannel(c.Request.Context(), middleware.GetUserID(c), channelID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// Update handles PATCH /v1/channels/:id
func (h *ChannelHandler) Update(c *gin.Context) {
	channelID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req models.ChannelUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ch, err := h.svc.UpdateChannel(c.Request.Context(), middleware.GetUserID(c), channelID, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// Delete handles DELETE /v1/channels/:id
func (h *ChannelHandler) Delete(c *gin.Context) {
	channelID, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteChannel(c.Request.Context(), middleware.GetUserID(c), channelID); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Channel deleted")
}
