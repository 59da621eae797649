/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package deck

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/media"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/rs/zerolog"
)

type fakeOutput struct {
	mu       sync.Mutex
	duration time.Duration
	position time.Duration
	playing  bool
	loaded   string
	gain     float64
	loadErr  error
	playErr  error
	plays    int
	stops    int
}

func (f *fakeOutput) Load(ctx context.Context, location string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	f.loaded = location
	f.position = 0
	return f.duration, nil
}

func (f *fakeOutput) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	f.plays++
	return nil
}

func (f *fakeOutput) Pause() {
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
}

func (f *fakeOutput) Seek(pos time.Duration) error {
	f.mu.Lock()
	f.position = pos
	f.mu.Unlock()
	return nil
}

func (f *fakeOutput) Stop() {
	f.mu.Lock()
	f.playing = false
	f.loaded = ""
	f.stops++
	f.mu.Unlock()
}

func (f *fakeOutput) SetGain(g float64) {
	f.mu.Lock()
	f.gain = g
	f.mu.Unlock()
}

func (f *fakeOutput) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeOutput) setPosition(p time.Duration) {
	f.mu.Lock()
	f.position = p
	f.mu.Unlock()
}

type stubResolver struct {
	mu       sync.Mutex
	err      error
	wait     chan struct{}
	released int
}

func (r *stubResolver) Resolve(ctx context.Context, ref string) (*media.Handle, error) {
	if r.wait != nil {
		<-r.wait
	}
	if r.err != nil {
		return nil, r.err
	}
	return media.NewHandle(ref, true, func() error {
		r.mu.Lock()
		r.released++
		r.mu.Unlock()
		return nil
	}), nil
}

func (r *stubResolver) releases() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func newTestDeck(out Output, res Resolver) (*Deck, chan Event) {
	events := make(chan Event, 64)
	return New(A, out, res, events, 10*time.Millisecond, zerolog.Nop()), events
}

func waitEvent(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func testTrack() *models.Track {
	return &models.Track{ID: "t1", Title: "Song", Artist: "Band", Duration: 200, TrackType: models.TrackTypeMusic, MediaURL: "song.mp3"}
}

func TestLoadSuccess(t *testing.T) {
	out := &fakeOutput{duration: 180 * time.Second}
	res := &stubResolver{wait: make(chan struct{})}
	d, events := newTestDeck(out, res)

	if err := d.Load(context.Background(), testTrack()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := d.State(); !st.IsLoading || d.Empty() {
		t.Fatalf("expected loading state, got %+v", st)
	}
	close(res.wait)

	ev := waitEvent(t, events, EventLoaded)
	if ev.Duration != 180 {
		t.Fatalf("expected probed duration 180, got %v", ev.Duration)
	}
	st := d.State()
	if st.IsLoading || st.Track == nil || st.Duration != 180 || st.Error != "" {
		t.Fatalf("unexpected state after load: %+v", st)
	}
}

func TestLoadFallsBackToCatalogDuration(t *testing.T) {
	d, events := newTestDeck(&fakeOutput{}, &stubResolver{})
	if err := d.Load(context.Background(), testTrack()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ev := waitEvent(t, events, EventLoaded); ev.Duration != 200 {
		t.Fatalf("expected catalog duration, got %v", ev.Duration)
	}
}

func TestLoadWithoutMediaReference(t *testing.T) {
	d, _ := newTestDeck(&fakeOutput{}, &stubResolver{})
	track := testTrack()
	track.MediaURL = ""

	err := d.Load(context.Background(), track)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	st := d.State()
	if st.Track != nil || st.IsLoading || st.Error == "" {
		t.Fatalf("expected cleared track with error, got %+v", st)
	}
}

func TestLoadResolveFailure(t *testing.T) {
	d, events := newTestDeck(&fakeOutput{}, &stubResolver{err: media.ErrNotFound})
	if err := d.Load(context.Background(), testTrack()); err != nil {
		t.Fatalf("load: %v", err)
	}
	ev := waitEvent(t, events, EventLoadFailed)
	if !errors.Is(ev.Err, ErrLoad) {
		t.Fatalf("expected ErrLoad in event, got %v", ev.Err)
	}
	st := d.State()
	if st.Track != nil || st.IsLoading || st.Error == "" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestReloadReleasesPreviousHandle(t *testing.T) {
	res := &stubResolver{}
	d, events := newTestDeck(&fakeOutput{}, res)
	d.Load(context.Background(), testTrack())
	waitEvent(t, events, EventLoaded)

	next := testTrack()
	next.ID = "t2"
	d.Load(context.Background(), next)
	waitEvent(t, events, EventLoaded)
	if res.releases() != 1 {
		t.Fatalf("expected first handle released, got %d", res.releases())
	}

	d.Eject()
	if res.releases() != 2 {
		t.Fatalf("expected eject to release handle, got %d", res.releases())
	}
}

func TestPlayWithoutTrackIsNoop(t *testing.T) {
	out := &fakeOutput{}
	d, _ := newTestDeck(out, &stubResolver{})
	if err := d.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if d.State().IsPlaying || out.plays != 0 {
		t.Fatal("expected no playback")
	}
}

func TestPlayDeferredWhileLoading(t *testing.T) {
	out := &fakeOutput{duration: 60 * time.Second}
	res := &stubResolver{wait: make(chan struct{})}
	d, events := newTestDeck(out, res)
	d.Load(context.Background(), testTrack())
	if err := d.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if d.State().IsPlaying {
		t.Fatal("play must wait for the load")
	}
	close(res.wait)
	waitEvent(t, events, EventLoaded)
	waitEvent(t, events, EventProgress)
	if !d.State().IsPlaying {
		t.Fatal("expected deferred play to start")
	}
}

func TestPlaybackFailure(t *testing.T) {
	out := &fakeOutput{playErr: errors.New("device busy")}
	d, events := newTestDeck(out, &stubResolver{})
	d.Load(context.Background(), testTrack())
	waitEvent(t, events, EventLoaded)

	err := d.Play()
	if !errors.Is(err, ErrPlayback) {
		t.Fatalf("expected ErrPlayback, got %v", err)
	}
	st := d.State()
	if st.IsPlaying || st.Error == "" || st.Track == nil {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestPauseIdempotent(t *testing.T) {
	out := &fakeOutput{duration: 100 * time.Second}
	d, events := newTestDeck(out, &stubResolver{})
	d.Load(context.Background(), testTrack())
	waitEvent(t, events, EventLoaded)
	d.Play()
	out.setPosition(25 * time.Second)

	d.Pause()
	first := d.State()
	d.Pause()
	second := d.State()
	if first != second {
		t.Fatalf("pause not idempotent: %+v vs %+v", first, second)
	}
	if first.IsPlaying || first.Progress != 25 {
		t.Fatalf("unexpected paused state: %+v", first)
	}
}

func TestSeek(t *testing.T) {
	out := &fakeOutput{duration: 100 * time.Second}
	d, events := newTestDeck(out, &stubResolver{})
	d.Load(context.Background(), testTrack())
	waitEvent(t, events, EventLoaded)

	d.Seek(50)
	if got := out.Position(); got != 50*time.Second {
		t.Fatalf("expected seek to 50s, got %v", got)
	}
	if d.State().Progress != 50 {
		t.Fatalf("expected progress 50, got %v", d.State().Progress)
	}

	for _, bad := range []float64{-1, 101} {
		d.Seek(bad)
		if got := out.Position(); got != 50*time.Second {
			t.Fatalf("seek(%v) should be ignored, position %v", bad, got)
		}
	}
}

func TestEjectResets(t *testing.T) {
	out := &fakeOutput{duration: 100 * time.Second}
	d, events := newTestDeck(out, &stubResolver{})
	d.Load(context.Background(), testTrack())
	waitEvent(t, events, EventLoaded)
	d.Play()

	d.Eject()
	if st := d.State(); st != (State{}) {
		t.Fatalf("expected empty state, got %+v", st)
	}
	if !d.Empty() {
		t.Fatal("expected deck to be empty")
	}
}

func TestEjectSupersedesInFlightLoad(t *testing.T) {
	res := &stubResolver{wait: make(chan struct{})}
	d, events := newTestDeck(&fakeOutput{}, res)
	d.Load(context.Background(), testTrack())
	d.Eject()
	close(res.wait)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after eject: %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
	if !d.Empty() {
		t.Fatalf("expected empty deck, got %+v", d.State())
	}
}

func TestProgressAndEnded(t *testing.T) {
	out := &fakeOutput{duration: 10 * time.Second}
	d, events := newTestDeck(out, &stubResolver{})
	d.Load(context.Background(), testTrack())
	waitEvent(t, events, EventLoaded)
	d.Play()

	out.setPosition(5 * time.Second)
	ev := waitEvent(t, events, EventProgress)
	if ev.Duration != 10 {
		t.Fatalf("unexpected progress event %+v", ev)
	}

	out.setPosition(10 * time.Second)
	waitEvent(t, events, EventEnded)
	st := d.State()
	if st.IsPlaying || st.Progress != 100 {
		t.Fatalf("unexpected state after end: %+v", st)
	}
}

func TestSetGainClamps(t *testing.T) {
	out := &fakeOutput{}
	d, _ := newTestDeck(out, &stubResolver{})
	d.SetGain(1.5)
	if d.Gain() != 1 || out.gain != 1 {
		t.Fatalf("expected clamp to 1, got %v", d.Gain())
	}
	d.SetGain(-0.2)
	if d.Gain() != 0 {
		t.Fatalf("expected clamp to 0, got %v", d.Gain())
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{in: "a", want: A},
		{in: "B", want: B},
		{in: "c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseID(%q) = %q", tt.in, got)
			}
		})
	}
	if A.Other() != B || B.Other() != A {
		t.Fatal("Other mismatch")
	}
}

func TestVirtualOutputClock(t *testing.T) {
	now := time.Unix(1000, 0)
	out := NewVirtualOutput()
	out.now = func() time.Time { return now }
	out.probe = func(string) (time.Duration, error) { return 30 * time.Second, nil }

	if err := out.Play(); err == nil {
		t.Fatal("expected error playing without media")
	}
	if _, err := out.Load(context.Background(), "/tmp/a.mp3"); err != nil {
		t.Fatalf("load: %v", err)
	}
	out.Play()
	now = now.Add(10 * time.Second)
	if got := out.Position(); got != 10*time.Second {
		t.Fatalf("expected 10s, got %v", got)
	}
	out.Pause()
	now = now.Add(5 * time.Second)
	if got := out.Position(); got != 10*time.Second {
		t.Fatalf("expected paused at 10s, got %v", got)
	}
	out.Play()
	now = now.Add(time.Minute)
	if got := out.Position(); got != 30*time.Second {
		t.Fatalf("expected position capped at duration, got %v", got)
	}
}
