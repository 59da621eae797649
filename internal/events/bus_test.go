/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventNowPlaying)

	bus.Publish(EventNowPlaying, Payload{"track_id": "t1"})
	bus.Publish(EventTransition, Payload{"kind": "crossfade"})

	select {
	case got := <-sub:
		if got["track_id"] != "t1" {
			t.Fatalf("unexpected payload: %v", got)
		}
	default:
		t.Fatal("expected payload")
	}

	select {
	case got := <-sub:
		t.Fatalf("unexpected extra payload: %v", got)
	default:
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventSessionState)
	for i := 0; i < cap(sub)+5; i++ {
		bus.Publish(EventSessionState, Payload{"n": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected full buffer, got %d/%d", len(sub), cap(sub))
	}
	if got := bus.Dropped(); got != 5 {
		t.Fatalf("dropped = %d, want 5", got)
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventQueueUpdated)
	bus.Unsubscribe(EventQueueUpdated, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(EventQueueUpdated, Payload{})
	bus.Unsubscribe(EventQueueUpdated, sub)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(EventDeadAir, Payload{"station_id": "s1"})
}
