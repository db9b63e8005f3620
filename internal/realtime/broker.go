package realtime

import (
	"context"
	"sync"

	"github.com/lalith-99/huddle/internal/observ"
	"go.uber.org/zap"
)

// Feed is a change-feed subscription API keyed by table and filter.
type Feed interface {
	Subscribe(ctx context.Context, filters ...Filter) (*Subscription, error)
}

const subscriptionBuffer = 256

// Subscription receives every event that matches any of its filters.
type Subscription struct {
	filters []Filter
	ch      chan ChangeEvent
	once    sync.Once
	cancel  func()
}

// C is closed when the subscription is closed.
func (s *Subscription) C() <-chan ChangeEvent {
	return s.ch
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

func (s *Subscription) matches(ev ChangeEvent) bool {
	for _, f := range s.filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

// Broker is the in-process fan-out. Publishers never block: a subscriber
// whose buffer is full loses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers filters until ctx is done or the subscription is
// closed.
func (b *Broker) Subscribe(ctx context.Context, filters ...Filter) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &Subscription{
		filters: filters,
		ch:      make(chan ChangeEvent, subscriptionBuffer),
	}

	// The subscription is complete and registered before ctx can close it,
	// so Close never sees a half-built sub and Publish never sees a closed
	// channel.
	var stop func() bool
	var stopMu sync.Mutex
	sub.cancel = func() {
		stopMu.Lock()
		if stop != nil {
			stop()
		}
		stopMu.Unlock()
		b.mu.Lock()
		delete(b.subs, sub)
		close(sub.ch)
		b.mu.Unlock()
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	stopMu.Lock()
	stop = context.AfterFunc(ctx, sub.Close)
	stopMu.Unlock()
	return sub, nil
}

func (b *Broker) Publish(ev ChangeEvent) {
	observ.RealtimeEventsTotal.WithLabelValues(ev.Table, string(ev.Kind)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			observ.RealtimeDroppedTotal.Inc()
			b.logger.Warn("subscriber buffer full, dropping event",
				zap.String("table", ev.Table),
				zap.String("id", ev.ID.String()),
			)
		}
	}
}

// Len is the number of open subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
