package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/models"
)

// envelope is the body of every JSON response. Exactly one of Data and
// Error is set.
type envelope struct {
	Data       any                `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Data: data})
}

func okPage(c *gin.Context, data any, p models.Pagination) {
	c.JSON(http.StatusOK, envelope{Data: data, Pagination: &p})
}

func okMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, envelope{Message: msg})
}

// fail writes err with the status of its kind. Backend causes never reach
// the client.
func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(apperr.KindOf(err)), envelope{Error: apperr.MessageOf(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Error: msg})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// pathID parses the named path parameter, answering 400 if it is not a uuid.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter. Missing or malformed
// values read as 0 and are clamped by the action layer.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid '"+name+"' parameter")
		return nil, false
	}
	return &id, true
}
