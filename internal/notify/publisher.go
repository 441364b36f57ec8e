// Package notify publishes product page invalidation events to Kafka.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	EventProductChanged = "product_changed"

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

var ErrUnavailable = errors.New("invalidation publisher unavailable")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProductInvalidation tells the storefront to refresh the page at Path.
type ProductInvalidation struct {
	EventType  string    `json:"event_type"`
	Slug       string    `json:"slug"`
	Path       string    `json:"path"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger
	now     func() time.Time
}

func NewPublisher(topic string, log zerolog.Logger, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same slug, same partition
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log zerolog.Logger) *Publisher {
	p := &Publisher{
		writer: w,
		log:    log.With().Str("component", "invalidation_publisher").Logger(),
		now:    time.Now,
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "kafka-invalidations",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

// ProductChanged publishes an invalidation for the product page of slug.
// While the breaker is open calls fail fast with ErrUnavailable.
func (p *Publisher) ProductChanged(ctx context.Context, slug, reason string) error {
	event := ProductInvalidation{
		EventType:  EventProductChanged,
		Slug:       slug,
		Path:       "/product/" + slug,
		Reason:     reason,
		OccurredAt: p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(slug),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventProductChanged)},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("publish invalidation for %s: %w", slug, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
