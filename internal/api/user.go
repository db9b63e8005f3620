package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves profiles and presence.
type UserHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewUserHandler(svc *service.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Me handles GET /v1/me
func (h *UserHandler) Me(c *gin.Context) {
	p, err := h.svc.GetProfile(c.Request.Context(), middleware.GetUserID(c), nil)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	p, err := h.svc.GetProfile(c.Request.Context(), middleware.GetUserID(c), &id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// Update handles PATCH /v1/me
func (h *UserHandler) Update(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.svc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

type statusRequest struct {
	Status models.Status `json:"status" binding:"required"`
}

// SetStatus handles PUT /v1/me/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	pres, err := h.svc.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, pres)
}

// UploadAvatar handles POST /v1/me/avatar (multipart field "file")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	up, closeFn, valid := formUpload(c)
	if !valid {
		return
	}
	defer closeFn()
	p, err := h.svc.UploadAvatar(c.Request.Context(), middleware.GetUserID(c), up)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// Presence handles GET /v1/presence?user_ids=a,b. Without user_ids every
// known presence is returned.
func (h *UserHandler) Presence(c *gin.Context) {
	userID := middleware.GetUserID(c)
	raw := c.Query("user_ids")
	if raw == "" {
		rows, err := h.svc.ListPresence(c.Request.Context(), userID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, rows)
		return
	}

	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			badRequest(c, "invalid 'user_ids' parameter")
			return
		}
		ids = append(ids, id)
	}
	rows, err := h.svc.GetPresence(c.Request.Context(), userID, ids)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rows)
}
