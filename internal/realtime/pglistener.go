package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NotifyChannel is the Postgres channel the change-feed triggers notify on.
const NotifyChannel = "realtime_changes"

// Publisher accepts change events.
type Publisher interface {
	Publish(ev ChangeEvent)
}

// PGListener relays LISTEN/NOTIFY payloads from Postgres into a Publisher.
// It holds one pool connection for as long as it runs.
type PGListener struct {
	pool   *pgxpool.Pool
	out    Publisher
	logger *zap.Logger
}

func NewPGListener(pool *pgxpool.Pool, out Publisher, logger *zap.Logger) *PGListener {
	return &PGListener{pool: pool, out: out, logger: logger}
}

// Run listens until ctx is done. A lost connection is re-established with
// exponential backoff; events emitted while disconnected are not replayed.
func (l *PGListener) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		err := l.listen(ctx, b)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		l.logger.Warn("change feed listener disconnected",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (l *PGListener) listen(ctx context.Context, b backoff.BackOff) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logger.Info("change feed listener started", zap.String("channel", NotifyChannel))
	b.Reset()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		ev, err := DecodeEvent([]byte(n.Payload))
		if err != nil {
			l.logger.Error("failed to decode change event", zap.Error(err), zap.String("payload", n.Payload))
			continue
		}
		l.out.Publish(ev)
	}
}

// DecodeEvent parses a notify payload.
func DecodeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Table == "" || ev.Kind == "" {
		return ChangeEvent{}, fmt.Errorf("decode change event: missing table or kind")
	}
	return ev, nil
}
