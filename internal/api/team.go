package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

type TeamHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewTeamHandler(svc *service.Service, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{svc: svc, logger: logger}
}

// Create handles POST /v1/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req models.TeamInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	team, err := h.svc.CreateTeam(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, team)
}

// List handles GET /v1/teams
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.svc.ListTeams(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, teams)
}

// Get handles GET /v1/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	team, err := h.svc.GetTeam(c.Request.Context(), middleware.GetUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, team)
}

// Update handles PATCH /v1/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req models.TeamUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	team, err := h.svc.UpdateTeam(c.Request.Context(), middleware.GetUserID(c), teamID, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, team)
}

// Delete handles DELETE /v1/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteTeam(c.Request.Context(), middleware.GetUserID(c), teamID); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Team deleted")
}

// Stats handles GET /v1/teams/:id/stats
func (h *TeamHandler) Stats(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	st, err := h.svc.TeamStats(c.Request.Context(), middleware.GetUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
