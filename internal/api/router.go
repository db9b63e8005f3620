package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type RouterConfig struct {
	Service     *service.Service
	Profiles    ProfileEnsurer
	JWTSecret   string
	RateLimiter *middleware.RateLimiter
	WS          WSOptions
	Health      HealthChecker
	Logger      *zap.Logger
}

// NewRouter wires every route. /v1/health and /metrics are public; the
// rest of /v1 requires a valid token.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/v1/health", health(cfg.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	if cfg.RateLimiter != nil {
		v1.Use(cfg.RateLimiter.Handler())
	}
	if cfg.Profiles != nil {
		v1.Use(EnsureProfile(cfg.Profiles, logger))
	}

	teams := NewTeamHandler(cfg.Service, logger)
	members := NewMembershipHandler(cfg.Service, logger)
	channels := NewChannelHandler(cfg.Service, logger)
	messages := NewMessageHandler(cfg.Service, logger)
	dms := NewDMHandler(cfg.Service, logger)
	users := NewUserHandler(cfg.Service, logger)
	files := NewFileHandler(cfg.Service, logger)
	notifications := NewNotificationHandler(cfg.Service, logger)
	ws := NewWSHandler(cfg.Service, cfg.WS, logger)

	v1.POST("/teams", teams.Create)
	v1.GET("/teams", teams.List)
	v1.POST("/teams/join", members.JoinTeam)
	v1.GET("/teams/:id", teams.Get)
	v1.PATCH("/teams/:id", teams.Update)
	v1.DELETE("/teams/:id", teams.Delete)
	v1.POST("/teams/:id/leave", members.LeaveTeam)
	v1.GET("/teams/:id/stats", teams.Stats)
	v1.GET("/teams/:id/channels", channels.List)
	v1.GET("/teams/:id/files", files.List)
	v1.POST("/teams/:id/files", files.Upload)

	v1.POST("/channels", channels.Create)
	v1.GET("/channels/:id", channels.Get)
	v1.PATCH("/channels/:id", channels.Update)
	v1.DELETE("/channels/:id", channels.Delete)
	v1.POST("/channels/:id/join", members.JoinChannel)
	v1.POST("/channels/:id/leave", members.LeaveChannel)
	v1.GET("/channels/:id/members", members.ListChannelMembers)
	v1.GET("/channels/:id/messages", messages.ListChannel)

	v1.POST("/dms", dms.Open)
	v1.GET("/dms", dms.List)
	v1.GET("/dms/:id", dms.Get)
	v1.DELETE("/dms/:id", dms.Delete)
	v1.GET("/dms/:id/messages", messages.ListDM)

	v1.POST("/messages", messages.Send)
	v1.GET("/messages/search", messages.Search)
	v1.GET("/messages/:id", messages.Get)
	v1.PATCH("/messages/:id", messages.Update)
	v1.DELETE("/messages/:id", messages.Delete)
	v1.GET("/messages/:id/replies", messages.Replies)
	v1.POST("/messages/:id/reactions", messages.React)

	v1.GET("/me", users.Me)
	v1.PATCH("/me", users.Update)
	v1.PUT("/me/status", users.SetStatus)
	v1.POST("/me/avatar", users.UploadAvatar)
	v1.GET("/users/:id", users.Get)
	v1.GET("/presence", users.Presence)

	v1.GET("/files/:id", files.Get)
	v1.GET("/files/:id/url", files.URL)
	v1.DELETE("/files/:id", files.Delete)

	v1.GET("/notifications", notifications.List)
	v1.POST("/notifications/read-all", notifications.MarkAllRead)
	v1.POST("/notifications/:id/read", notifications.MarkRead)
	v1.DELETE("/notifications/:id", notifications.Delete)
	v1.DELETE("/notifications", notifications.Clear)

	v1.GET("/ws", ws.Serve)

	return r
}

func health(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
