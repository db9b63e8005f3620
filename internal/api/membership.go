package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

// MembershipHandler covers joining and leaving teams and private channels.
type MembershipHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewMembershipHandler(svc *service.Service, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{svc: svc, logger: logger}
}

type joinTeamRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// JoinTeam handles POST /v1/teams/join
func (h *MembershipHandler) JoinTeam(c *gin.Context) {
	var req joinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	team, err := h.svc.JoinTeam(c.Request.Context(), middleware.GetUserID(c), req.InviteCode)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, team)
}

// LeaveTeam handles POST /v1/teams/:id/leave
func (h *MembershipHandler) LeaveTeam(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.LeaveTeam(c.Request.Context(), middleware.GetUserID(c), teamID); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Left team")
}

// JoinChannel handles POST /v1/channels/:id/join
func (h *MembershipHandler) JoinChannel(c *gin.Context) {
	channelID, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.JoinChannel(c.Request.Context(), middleware.GetUserID(c), channelID); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Joined channel")
}

// LeaveChannel handles POST /v1/channels/:id/leave
func (h *MembershipHandler) LeaveChannel(c *gin.Context) {
	channelID, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.LeaveChannel(c.Request.Context(), middleware.GetUserID(c), channelID); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Left channel")
}

// ListChannelMembers handles GET /v1/channels/:id/members
func (h *MembershipHandler) ListChannelMembers(c *gin.Context) {
	channelID, valid := pathID(c, "id")
	if !valid {
		return
	}
	members, err := h.svc.ListChannelMembers(c.Request.Context(), middleware.GetUserID(c), channelID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, members)
}
