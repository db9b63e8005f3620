package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"go.uber.org/zap"
)

const DefaultHeartbeatInterval = 30 * time.Second

// StatusUpdater reports a user's status to the backend.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, userID uuid.UUID, status models.Status) (*models.UserPresence, error)
}

// Heartbeat re-asserts online on a fixed interval so that readers keep
// seeing the user as fresh. A status chosen explicitly in between lasts
// until the next beat. A failed beat is logged and skipped; the next tick
// is the only retry.
type Heartbeat struct {
	updater  StatusUpdater
	userID   uuid.UUID
	interval time.Duration
	logger   *zap.Logger
}

func NewHeartbeat(updater StatusUpdater, userID uuid.UUID, interval time.Duration, logger *zap.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{
		updater:  updater,
		userID:   userID,
		interval: interval,
		logger:   logger,
	}
}

// Run beats immediately and then every interval until ctx is done. On the
// way out it reports the user offline.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.beat(ctx, models.StatusOnline)
	for {
		select {
		case <-ctx.Done():
			offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			h.beat(offCtx, models.StatusOffline)
			cancel()
			return
		case <-ticker.C:
			h.beat(ctx, models.StatusOnline)
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context, status models.Status) {
	if _, err := h.updater.UpdateStatus(ctx, h.userID, status); err != nil {
		h.logger.Warn("presence heartbeat failed",
			zap.String("user_id", h.userID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
