/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays in-process playout events to NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubjectPrefix prefixes every relayed subject; the event type follows.
const SubjectPrefix = "radiopro.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	// Connection options
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Connect dials NATS with reconnect logging.
func Connect(cfg NATSConfig, logger zerolog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("radiopro-playout"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	logger.Info().Str("url", conn.ConnectedUrl()).Msg("nats connected")
	return conn, nil
}

// Publisher is the part of *nats.Conn the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the envelope written to NATS.
type Message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

type subscription struct {
	eventType events.EventType
	ch        events.Subscriber
}

// Relay forwards bus events to NATS. Subscriptions are taken when the relay
// is created so no event published afterwards is missed.
type Relay struct {
	pub    Publisher
	bus    *events.Bus
	nodeID string
	logger zerolog.Logger

	subs []subscription
	once sync.Once
}

// NewRelay subscribes to types on bus. With no types it relays every type.
func NewRelay(pub Publisher, bus *events.Bus, logger zerolog.Logger, types ...events.EventType) *Relay {
	if len(types) == 0 {
		types = events.AllTypes
	}
	r := &Relay{
		pub:    pub,
		bus:    bus,
		nodeID: nodeID(),
		logger: logger.With().Str("component", "event_relay").Logger(),
	}
	for _, et := range types {
		r.subs = append(r.subs, subscription{eventType: et, ch: bus.Subscribe(et)})
	}
	return r
}

// Run forwards events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	defer r.close()

	var wg sync.WaitGroup
	for _, sub := range r.subs {
		wg.Add(1)
		go func(sub subscription) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub.ch:
					if !ok {
						return
					}
					if err := r.forward(sub.eventType, payload); err != nil {
						r.logger.Debug().Err(err).Str("event_type", string(sub.eventType)).Msg("relay publish failed")
					}
				}
			}
		}(sub)
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Relay) forward(eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(Message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    r.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.pub.Publish(SubjectPrefix+string(eventType), data)
}

func (r *Relay) close() {
	r.once.Do(func() {
		for _, sub := range r.subs {
			r.bus.Unsubscribe(sub.eventType, sub.ch)
		}
	})
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}
