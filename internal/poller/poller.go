package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const EventSignedOut = "signed_out"

// CartDiscarder drops an owner's cart and its cache entry.
type CartDiscarder interface {
	DiscardCart(ctx context.Context, ownerKey string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// SessionEvent is published by the auth front end when a session ends.
type SessionEvent struct {
	EventType string `json:"event_type"`
	OwnerKey  string `json:"owner_key"`
}

// Poller consumes session events and removes the carts of signed-out owners.
type Poller struct {
	carts      CartDiscarder
	reader     messageReader
	log        zerolog.Logger
	retryDelay time.Duration
}

func NewPoller(carts CartDiscarder, topic, groupID string, log zerolog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(carts, reader, log)
}

func newPoller(carts CartDiscarder, reader messageReader, log zerolog.Logger) *Poller {
	return &Poller{
		carts:      carts,
		reader:     reader,
		log:        log.With().Str("component", "session_poller").Logger(),
		retryDelay: time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error().Err(err).Msg("error reading message")
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		if err := p.handle(ctx, m); err != nil {
			p.log.Error().Err(err).Int64("offset", m.Offset).Msg("session event not applied")
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error().Err(err).Msg("error closing reader")
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	var event SessionEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("parse session event: %w", err)
	}
	if event.EventType != EventSignedOut {
		return nil
	}
	if event.OwnerKey == "" {
		return fmt.Errorf("session event without owner_key")
	}

	if err := p.carts.DiscardCart(ctx, event.OwnerKey); err != nil {
		return fmt.Errorf("discard cart %s: %w", event.OwnerKey, err)
	}
	p.log.Info().Str("owner_key", event.OwnerKey).Msg("cart discarded after sign-out")
	return nil
}
