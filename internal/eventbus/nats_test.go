/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/rs/zerolog"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs map[string][]byte
}

func (c *capturePublisher) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msgs == nil {
		c.msgs = make(map[string][]byte)
	}
	c.msgs[subject] = data
	return nil
}

func (c *capturePublisher) get(subject string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.msgs[subject]
	return data, ok
}

func TestRelayForwardsEvents(t *testing.T) {
	bus := events.NewBus()
	pub := &capturePublisher{}
	relay := NewRelay(pub, bus, zerolog.Nop(), events.EventNowPlaying, events.EventDeadAir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()

	bus.Publish(events.EventNowPlaying, events.Payload{"station_id": "s1", "deck": "A"})
	bus.Publish(events.EventQueueUpdated, events.Payload{"station_id": "s1"})

	var data []byte
	deadline := time.Now().Add(2 * time.Second)
	for {
		var ok bool
		if data, ok = pub.get(SubjectPrefix + "now_playing"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("now_playing was not relayed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.EventType != events.EventNowPlaying || msg.Payload["station_id"] != "s1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.MessageID == "" || msg.NodeID == "" {
		t.Fatalf("message ids missing: %+v", msg)
	}

	cancel()
	<-done
	if _, ok := pub.get(SubjectPrefix + "queue.updated"); ok {
		t.Fatalf("unsubscribed type must not be relayed")
	}
}
