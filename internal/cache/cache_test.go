/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/rs/zerolog"
)

func TestUnavailableRedisFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if c.IsAvailable() {
		t.Fatal("expected cache to be disabled when redis is unreachable")
	}

	ctx := context.Background()
	if err := c.SetTracks(ctx, "s1", []models.Track{{ID: "t1"}}); err != nil {
		t.Fatalf("set on disabled cache should be a no-op, got %v", err)
	}
	if _, ok := c.GetTracks(ctx, "s1"); ok {
		t.Fatal("disabled cache must always miss")
	}
	if err := c.InvalidateTracks(ctx, "s1", "t1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.FlushAll(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TrackListTTL != DefaultTrackListTTL || cfg.TrackTTL != DefaultTrackTTL {
		t.Fatalf("unexpected TTLs %+v", cfg)
	}
	if !cfg.DisableOnError || cfg.Cooldown != DefaultCooldown {
		t.Fatal("expected circuit breaker enabled by default")
	}
}

func TestBreakerReopensAfterCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	cfg.Cooldown = time.Minute

	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.trip()

	now = now.Add(30 * time.Second)
	if c.IsAvailable() {
		t.Fatal("cache available inside cooldown")
	}
	now = now.Add(31 * time.Second)
	if !c.IsAvailable() {
		t.Fatal("cache should retry after cooldown")
	}

	// The retry fails against the dead address and trips again.
	if _, ok := c.GetTrack(context.Background(), "t1"); ok {
		t.Fatal("unexpected hit")
	}
	if c.IsAvailable() {
		t.Fatal("failed retry should trip the breaker")
	}
}

func TestKeysAreStationScoped(t *testing.T) {
	if trackListKey("north") == trackListKey("south") {
		t.Fatal("station lists share a key")
	}
	if got := trackKey("t1"); got != "radiopro:track:t1" {
		t.Fatalf("trackKey = %q", got)
	}
}
