/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package deck implements a single playback slot of the dual-deck engine.
package deck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/media"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrLoad indicates an invalid or unreachable media reference.
	ErrLoad = errors.New("deck load failed")

	// ErrPlayback indicates a renderer failure while starting playback.
	ErrPlayback = errors.New("deck playback failed")

	// ErrUnknownDeck is returned when parsing an id other than A or B.
	ErrUnknownDeck = errors.New("unknown deck")
)

// ID names one of the two decks.
type ID string

const (
	A ID = "A"
	B ID = "B"
)

// Other returns the opposite deck.
func (id ID) Other() ID {
	if id == A {
		return B
	}
	return A
}

// ParseID parses "a"/"A"/"b"/"B".
func ParseID(s string) (ID, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return A, nil
	case "B":
		return B, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDeck, s)
}

// State is the observable state of a deck.
type State struct {
	Track     *models.Track `json:"track"`
	IsPlaying bool          `json:"is_playing"`
	Progress  float64       `json:"progress"`
	Duration  float64       `json:"duration"`
	IsLoading bool          `json:"is_loading"`
	Error     string        `json:"error,omitempty"`
}

// Resolver turns a media reference into something the output can open.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*media.Handle, error)
}

// Deck owns one Output. All methods are safe for concurrent use; the deck
// never holds its lock while delivering an event.
type Deck struct {
	id       ID
	out      Output
	resolver Resolver
	events   chan<- Event
	interval time.Duration
	logger   zerolog.Logger

	// loadMu serializes output loads so a superseded load cannot land after
	// a newer one.
	loadMu sync.Mutex

	mu          sync.Mutex
	state       State
	seq         uint64
	handle      *media.Handle
	playPending bool
	ticker      chan struct{}
	gain        float64

	done      chan struct{}
	closeOnce sync.Once
}

// New creates an empty deck reporting to events.
func New(id ID, out Output, resolver Resolver, events chan<- Event, progressInterval time.Duration, logger zerolog.Logger) *Deck {
	if progressInterval <= 0 {
		progressInterval = time.Second
	}
	return &Deck{
		id:       id,
		out:      out,
		resolver: resolver,
		events:   events,
		interval: progressInterval,
		logger:   logger.With().Str("deck", string(id)).Logger(),
		gain:     1,
		done:     make(chan struct{}),
	}
}

// ID returns the deck id.
func (d *Deck) ID() ID { return d.id }

// State returns a copy of the current deck state.
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Empty reports whether the deck has neither a track nor a load in flight.
func (d *Deck) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Track == nil && !d.state.IsLoading
}

// Gain returns the last linear gain applied to the output.
func (d *Deck) Gain() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain
}

// Load starts loading track. It returns ErrLoad immediately when the track
// has no media reference; otherwise the outcome arrives as EventLoaded or
// EventLoadFailed.
func (d *Deck) Load(ctx context.Context, track *models.Track) error {
	d.mu.Lock()
	d.stopTickerLocked()
	d.out.Stop()
	d.releaseLocked()
	d.seq++
	d.playPending = false

	if track == nil || !track.HasMedia() {
		d.state = State{Error: "track has no media reference"}
		d.mu.Unlock()
		if track == nil {
			return fmt.Errorf("%w: no track", ErrLoad)
		}
		return fmt.Errorf("%w: track %s has no media reference", ErrLoad, track.ID)
	}

	seq := d.seq
	d.state = State{Track: track, IsLoading: true, Duration: track.Duration}
	d.mu.Unlock()

	go d.load(ctx, seq, track)
	return nil
}

func (d *Deck) load(ctx context.Context, seq uint64, track *models.Track) {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	if !d.current(seq) {
		return
	}

	handle, err := d.resolver.Resolve(ctx, track.MediaURL)
	var dur time.Duration
	if err == nil {
		if !d.current(seq) {
			handle.Close()
			return
		}
		dur, err = d.out.Load(ctx, handle.Location)
		if err != nil {
			handle.Close()
		}
	}

	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		if err == nil {
			d.out.Stop()
			handle.Close()
		}
		return
	}

	if err != nil {
		d.state = State{Error: err.Error()}
		d.playPending = false
		d.mu.Unlock()
		d.logger.Warn().Err(err).Str("track_id", track.ID).Msg("deck load failed")
		d.emit(Event{Deck: d.id, Kind: EventLoadFailed, Track: track, Err: fmt.Errorf("%w: %v", ErrLoad, err)})
		return
	}

	d.handle = handle
	seconds := dur.Seconds()
	if seconds <= 0 {
		seconds = track.Duration
	}
	d.state.IsLoading = false
	d.state.Duration = seconds
	d.out.SetGain(d.gain)
	play := d.playPending
	d.playPending = false
	d.mu.Unlock()

	d.logger.Debug().Str("track_id", track.ID).Float64("duration", seconds).Msg("deck loaded")
	d.emit(Event{Deck: d.id, Kind: EventLoaded, Track: track, Duration: seconds})

	if play {
		if err := d.Play(); err != nil {
			d.emit(Event{Deck: d.id, Kind: EventPlaybackFailed, Track: track, Err: err})
		}
	}
}

func (d *Deck) current(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq == d.seq
}

// Play starts output. It is a no-op with no track loaded or when already
// playing; a request made while loading is honoured once the load completes.
func (d *Deck) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.IsLoading {
		d.playPending = true
		return nil
	}
	if d.state.Track == nil || d.state.IsPlaying {
		return nil
	}
	if err := d.out.Play(); err != nil {
		d.state.IsPlaying = false
		d.state.Error = err.Error()
		return fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	d.state.IsPlaying = true
	d.state.Error = ""
	d.startTickerLocked()
	return nil
}

// Pause stops sound output. Pausing a paused deck changes nothing.
func (d *Deck) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.playPending = false
	if !d.state.IsPlaying {
		return
	}
	d.out.Pause()
	d.state.IsPlaying = false
	d.stopTickerLocked()
	d.updateProgressLocked(d.out.Position().Seconds())
}

// Seek moves the play head to seconds. Positions outside [0, duration] are
// ignored.
func (d *Deck) Seek(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Track == nil || d.state.IsLoading {
		return
	}
	if seconds < 0 || seconds > d.state.Duration {
		return
	}
	if err := d.out.Seek(time.Duration(seconds * float64(time.Second))); err != nil {
		d.logger.Debug().Err(err).Float64("seconds", seconds).Msg("seek ignored")
		return
	}
	d.updateProgressLocked(seconds)
}

// Eject stops playback and resets the deck to empty.
func (d *Deck) Eject() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTickerLocked()
	d.out.Stop()
	d.releaseLocked()
	d.seq++
	d.playPending = false
	d.state = State{}
}

// SetGain applies a linear gain in [0,1].
func (d *Deck) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	d.mu.Lock()
	d.gain = gain
	d.mu.Unlock()
	d.out.SetGain(gain)
}

// Close ejects the deck and stops event delivery.
func (d *Deck) Close() {
	d.Eject()
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Deck) releaseLocked() {
	if d.handle == nil {
		return
	}
	if err := d.handle.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("release media handle failed")
	}
	d.handle = nil
}

func (d *Deck) startTickerLocked() {
	d.stopTickerLocked()
	stop := make(chan struct{})
	d.ticker = stop
	go d.runTicker(stop)
}

func (d *Deck) stopTickerLocked() {
	if d.ticker != nil {
		close(d.ticker)
		d.ticker = nil
	}
}

func (d *Deck) runTicker(stop chan struct{}) {
	t := time.NewTicker(d.interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-d.done:
			return
		case <-t.C:
		}

		ev, finished := d.tick(stop)
		if ev != nil {
			d.emit(*ev)
		}
		if finished {
			return
		}
	}
}

func (d *Deck) tick(stop chan struct{}) (*Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ticker != stop || !d.state.IsPlaying {
		return nil, true
	}

	elapsed := d.out.Position().Seconds()
	duration := d.state.Duration
	track := d.state.Track

	if duration > 0 && elapsed >= duration {
		d.out.Pause()
		d.state.IsPlaying = false
		d.state.Progress = 100
		d.ticker = nil
		return &Event{Deck: d.id, Kind: EventEnded, Track: track, Elapsed: duration, Duration: duration}, true
	}

	d.updateProgressLocked(elapsed)
	return &Event{Deck: d.id, Kind: EventProgress, Track: track, Elapsed: elapsed, Duration: duration}, false
}

func (d *Deck) updateProgressLocked(elapsed float64) {
	if d.state.Duration <= 0 {
		d.state.Progress = 0
		return
	}
	p := elapsed / d.state.Duration * 100
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	d.state.Progress = p
}

func (d *Deck) emit(ev Event) {
	if d.events == nil {
		return
	}
	select {
	case d.events <- ev:
	case <-d.done:
	}
}
