package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka appends events to the activity topic, keyed by actor so one
// user's actions stay ordered. A circuit breaker stops the request path
// from waiting on a broker that is down.
type Kafka struct {
	writer messageWriter
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewKafka(brokers []string, topic string, logger *zap.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafka(w, logger)
}

func newKafka(w messageWriter, logger *zap.Logger) *Kafka {
	st := gobreaker.Settings{
		Name:        "kafka",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Kafka{writer: w, cb: gobreaker.NewCircuitBreaker(st), logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.ActorID.String()),
		Value: value,
		Time:  ev.At,
	}
	_, err = k.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return nil, k.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (k *Kafka) State() gobreaker.State {
	return k.cb.State()
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
