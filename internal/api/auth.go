package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/middleware"
	"go.uber.org/zap"
)

// ProfileEnsurer creates the profile of a first-time caller.
type ProfileEnsurer interface {
	Ensure(ctx context.Context, id uuid.UUID, email string) error
}

// EnsureProfile stands in for the identity provider's sign-up hook: the
// first authenticated request of a user creates their profile row. Users
// already seen by this process are skipped.
func EnsureProfile(profiles ProfileEnsurer, logger *zap.Logger) gin.HandlerFunc {
	var seen sync.Map
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == uuid.Nil {
			c.Next()
			return
		}
		if _, ok := seen.Load(userID); !ok {
			if err := profiles.Ensure(c.Request.Context(), userID, middleware.GetEmail(c)); err != nil {
				logger.Error("failed to ensure profile", zap.String("user_id", userID.String()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Error: "Failed to load profile"})
				return
			}
			seen.Store(userID, struct{}{})
		}
		c.Next()
	}
}
