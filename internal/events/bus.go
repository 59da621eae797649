/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events fans playout notifications out to in-process listeners
// such as websocket clients and the NATS relay.
package events

import (
	"sync"
	"sync/atomic"
)

// EventType names a notification published by a station session.
type EventType string

const (
	EventSessionState EventType = "session.state"
	EventNowPlaying   EventType = "now_playing"
	EventTransition   EventType = "transition"
	EventAutoDJ       EventType = "autodj"
	EventQueueUpdated EventType = "queue.updated"
	EventDeckError    EventType = "deck.error"
	EventDeadAir      EventType = "dead_air"
)

// AllTypes lists every event type a session publishes.
var AllTypes = []EventType{
	EventSessionState,
	EventNowPlaying,
	EventTransition,
	EventAutoDJ,
	EventQueueUpdated,
	EventDeckError,
	EventDeadAir,
}

// Payload is the JSON-ready body of an event. Every session payload carries
// station_id.
type Payload map[string]any

// Subscriber receives payloads for one event type.
type Subscriber chan Payload

const subscriberBuffer = 16

// Bus is a non-blocking in-process pubsub. The zero value is not usable;
// a nil *Bus drops everything.
type Bus struct {
	mu      sync.RWMutex
	subs    map[EventType]map[Subscriber]struct{}
	dropped atomic.Uint64
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType]map[Subscriber]struct{})}
}

// Subscribe returns a buffered channel for eventType.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[eventType]
	if !ok {
		set = make(map[Subscriber]struct{})
		b.subs[eventType] = set
	}
	set[ch] = struct{}{}
	return ch
}

// Publish delivers payload to every subscriber of eventType. A full
// subscriber misses the event and the drop is counted.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	if b == nil {
		return
	}
	// held across sends so Unsubscribe cannot close a channel mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[eventType] {
		select {
		case ch <- payload:
		default:
			b.dropped.Add(1)
		}
	}
}

// Unsubscribe detaches and closes sub. Unknown subscribers are ignored.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[eventType]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub)
	if len(set) == 0 {
		delete(b.subs, eventType)
	}
}

// Dropped reports how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
