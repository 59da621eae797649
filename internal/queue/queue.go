/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package queue holds a station's manual queue of upcoming tracks and
// persists it to a queuestore with debounced, coalesced writes.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/queuestore"
	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrDuplicate is returned when enqueueing a track already queued.
	ErrDuplicate = errors.New("track already queued")

	// ErrPersistence wraps queue store failures.
	ErrPersistence = errors.New("queue persistence failed")
)

const writeTimeout = 10 * time.Second

// Options tunes persistence timing.
type Options struct {
	Debounce     time.Duration
	RetryBackoff time.Duration
}

// pendingWrite is the latest unwritten queue state. retried marks a payload
// that already used its rate-limit retry.
type pendingWrite struct {
	items   []string
	retried bool
}

// Manager is the in-memory queue. The in-memory order is authoritative; the
// store only ever receives the latest state.
type Manager struct {
	stationID string
	store     queuestore.Store
	opts      Options
	logger    zerolog.Logger

	// writeMu serializes store writes. The payload is taken from the slot
	// only after acquiring it, so an older state can never land last.
	writeMu sync.Mutex

	mu       sync.Mutex
	items    []models.Track
	recordID string
	slot     *pendingWrite
	timer    *time.Timer
	closed   bool
}

// New creates an empty queue for stationID.
func New(stationID string, store queuestore.Store, opts Options, logger zerolog.Logger) *Manager {
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 3 * time.Second
	}
	return &Manager{
		stationID: stationID,
		store:     store,
		opts:      opts,
		logger:    logger.With().Str("component", "queue").Str("station_id", stationID).Logger(),
	}
}

// Restore loads the persisted queue, creating the record when the station
// has none. lookup maps stored ids to tracks; ids it cannot resolve are
// dropped.
func (m *Manager) Restore(ctx context.Context, lookup func(ids []string) []models.Track) error {
	rec, err := m.store.Get(ctx, m.stationID)
	if errors.Is(err, queuestore.ErrNotFound) {
		rec, err = m.store.Create(ctx, m.stationID)
	}
	if err != nil {
		return fmt.Errorf("%w: restore: %w", ErrPersistence, err)
	}

	var tracks []models.Track
	if len(rec.Items) > 0 && lookup != nil {
		tracks = lookup(rec.Items)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordID = rec.ID
	m.items = m.items[:0]
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		m.items = append(m.items, t)
	}
	m.report()
	m.logger.Debug().Int("items", len(m.items)).Int("stored", len(rec.Items)).Msg("queue restored")
	return nil
}

// Enqueue inserts track at index, or appends when index is out of range.
func (m *Manager) Enqueue(track models.Track, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.items {
		if t.ID == track.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, track.ID)
		}
	}
	if index < 0 || index >= len(m.items) {
		m.items = append(m.items, track)
	} else {
		m.items = append(m.items, models.Track{})
		copy(m.items[index+1:], m.items[index:])
		m.items[index] = track
	}
	m.changedLocked()
	return nil
}

// Dequeue removes the track at index. Out of range indexes are ignored.
func (m *Manager) Dequeue(index int) (models.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.items) {
		return models.Track{}, false
	}
	removed := m.items[index]
	m.items = append(m.items[:index], m.items[index+1:]...)
	m.changedLocked()
	return removed, true
}

// Pop removes and returns the head.
func (m *Manager) Pop() (models.Track, bool) {
	return m.Dequeue(0)
}

// Peek returns the head without removing it.
func (m *Manager) Peek() (models.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return models.Track{}, false
	}
	return m.items[0], true
}

// Move relocates the track at from to position to. Invalid indexes are
// ignored.
func (m *Manager) Move(from, to int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	track := m.items[from]
	m.items = append(m.items[:from], m.items[from+1:]...)
	m.items = append(m.items, models.Track{})
	copy(m.items[to+1:], m.items[to:])
	m.items[to] = track
	m.changedLocked()
	return true
}

// Clear empties the queue.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return
	}
	m.items = nil
	m.changedLocked()
}

// Items returns a copy of the queue in play order.
func (m *Manager) Items() []models.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Track(nil), m.items...)
}

// Len returns the queue length.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Contains reports whether id is queued.
func (m *Manager) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.items {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Flush writes the pending state now instead of waiting for the debounce.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return m.write(ctx)
}

// Close flushes pending state and stops scheduling writes.
func (m *Manager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return err
}

func (m *Manager) changedLocked() {
	ids := make([]string, len(m.items))
	for i, t := range m.items {
		ids[i] = t.ID
	}
	m.slot = &pendingWrite{items: ids}
	m.report()
	if !m.closed {
		m.armLocked(m.opts.Debounce)
	}
}

func (m *Manager) armLocked(delay time.Duration) {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(delay, m.fire)
}

func (m *Manager) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := m.write(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("queue write failed")
	}
}

func (m *Manager) write(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	p := m.slot
	m.slot = nil
	recordID := m.recordID
	m.mu.Unlock()
	if p == nil {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.ScopeQueue, "queue.persist", m.stationID,
		attribute.Int("radiopro.queue.items", len(p.items)))
	err := m.persist(ctx, recordID, p.items)
	telemetry.EndSpan(span, err)
	if err == nil {
		telemetry.QueueWritesTotal.WithLabelValues(m.stationID, "ok").Inc()
		m.logger.Debug().Int("items", len(p.items)).Msg("queue persisted")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	superseded := m.slot != nil
	if !superseded {
		m.slot = p
	}
	if errors.Is(err, queuestore.ErrRateLimited) {
		telemetry.QueueWritesTotal.WithLabelValues(m.stationID, "rate_limited").Inc()
		if !superseded && !p.retried && !m.closed {
			p.retried = true
			m.armLocked(m.opts.RetryBackoff)
			m.logger.Debug().Dur("backoff", m.opts.RetryBackoff).Msg("queue write rate limited, retrying")
		}
	} else {
		telemetry.QueueWritesTotal.WithLabelValues(m.stationID, "error").Inc()
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func (m *Manager) persist(ctx context.Context, recordID string, items []string) error {
	if recordID == "" {
		rec, err := m.store.Get(ctx, m.stationID)
		if errors.Is(err, queuestore.ErrNotFound) {
			rec, err = m.store.Create(ctx, m.stationID)
		}
		if err != nil {
			return err
		}
		recordID = rec.ID
		m.mu.Lock()
		m.recordID = recordID
		m.mu.Unlock()
	}
	_, err := m.store.Update(ctx, recordID, items)
	return err
}

func (m *Manager) report() {
	telemetry.QueueLength.WithLabelValues(m.stationID).Set(float64(len(m.items)))
}
