/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Manager tracks sessions per station.
type Manager struct {
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	running  map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager creates a playout manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger:   logger.With().Str("component", "playout_manager").Logger(),
		sessions: make(map[string]*Session),
		running:  make(map[string]context.CancelFunc),
	}
}

// Add registers a session. A station can only have one session.
func (m *Manager) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := s.StationID()
	if _, ok := m.sessions[id]; ok {
		return fmt.Errorf("station %s already has a session", id)
	}
	m.sessions[id] = s
	return nil
}

// Get returns the session for a station.
func (m *Manager) Get(stationID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[stationID]
	if !ok {
		return nil, ErrStationNotFound
	}
	return s, nil
}

// Stations lists registered station ids in order.
func (m *Manager) Stations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start starts and runs every registered session that is not running yet.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		if _, ok := m.running[id]; ok {
			continue
		}
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start station %s: %w", id, err)
		}

		runCtx, cancel := context.WithCancel(ctx)
		m.running[id] = cancel
		m.wg.Add(1)
		go func(id string, s *Session) {
			defer m.wg.Done()
			if err := s.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error().Err(err).Str("station_id", id).Msg("session stopped")
			}
		}(id, s)
	}
	return nil
}

// Shutdown stops every session, flushing their queues.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		sessions[id] = s
	}
	for _, cancel := range m.running {
		cancel()
	}
	m.running = make(map[string]context.CancelFunc)
	m.mu.Unlock()

	m.wg.Wait()

	var errs []error
	for id, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close station %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
