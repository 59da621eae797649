/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package deck

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/media"
)

// Output is the audio rendering slot wrapped by a deck. Decoding and mixing
// happen behind this interface. Implementations must be safe for concurrent use.
type Output interface {
	// Load prepares location for playback and returns its duration, or 0
	// when the renderer cannot tell yet.
	Load(ctx context.Context, location string) (time.Duration, error)
	Play() error
	Pause()
	Seek(pos time.Duration) error
	Stop()
	SetGain(gain float64)
	Position() time.Duration
}

var errNothingLoaded = errors.New("no media loaded")

// VirtualOutput renders nothing and advances position with the wall clock.
// It backs headless stations and lets the automation run without a sound card.
type VirtualOutput struct {
	mu sync.Mutex

	now   func() time.Time
	probe func(string) (time.Duration, error)

	location  string
	duration  time.Duration
	offset    time.Duration
	startedAt time.Time
	playing   bool
	gain      float64
}

// NewVirtualOutput creates a clock-driven output.
func NewVirtualOutput() *VirtualOutput {
	return &VirtualOutput{
		now:   time.Now,
		probe: probeLocal,
		gain:  1,
	}
}

func probeLocal(location string) (time.Duration, error) {
	if strings.Contains(location, "://") || !media.SupportedExtension(location) {
		return 0, nil
	}
	return media.Probe(location)
}

func (o *VirtualOutput) Load(ctx context.Context, location string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dur, err := o.probe(location)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.location = location
	o.duration = dur
	o.offset = 0
	o.playing = false
	return dur, nil
}

func (o *VirtualOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.location == "" {
		return errNothingLoaded
	}
	if !o.playing {
		o.playing = true
		o.startedAt = o.now()
	}
	return nil
}

func (o *VirtualOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playing {
		o.offset = o.positionLocked()
		o.playing = false
	}
}

func (o *VirtualOutput) Seek(pos time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.location == "" {
		return errNothingLoaded
	}
	o.offset = pos
	if o.playing {
		o.startedAt = o.now()
	}
	return nil
}

func (o *VirtualOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.location = ""
	o.duration = 0
	o.offset = 0
	o.playing = false
}

func (o *VirtualOutput) SetGain(gain float64) {
	o.mu.Lock()
	o.gain = gain
	o.mu.Unlock()
}

// Gain returns the last gain applied.
func (o *VirtualOutput) Gain() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gain
}

func (o *VirtualOutput) Position() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.positionLocked()
}

func (o *VirtualOutput) positionLocked() time.Duration {
	pos := o.offset
	if o.playing {
		pos += o.now().Sub(o.startedAt)
	}
	if o.duration > 0 && pos > o.duration {
		pos = o.duration
	}
	return pos
}
