/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package queuestore persists each station's queue as one ordered record of
// track ids.
package queuestore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound indicates the station has no queue record yet.
	ErrNotFound = errors.New("queue record not found")

	// ErrRateLimited indicates the store rejected a write for exceeding its
	// write rate. Callers may retry after a backoff.
	ErrRateLimited = errors.New("queue store rate limited")
)

// Store is the durable queue record store.
type Store interface {
	Get(ctx context.Context, stationID string) (*models.QueueRecord, error)
	Create(ctx context.Context, stationID string) (*models.QueueRecord, error)
	Update(ctx context.Context, id string, items []string) (*models.QueueRecord, error)
}

// MemoryStore keeps records in process. Used by tests and ephemeral stations.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.QueueRecord // by id
	updates int
	fail    []error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.QueueRecord)}
}

func (m *MemoryStore) Get(ctx context.Context, stationID string) (*models.QueueRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.StationID == stationID {
			return cloneRecord(rec), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Create(ctx context.Context, stationID string) (*models.QueueRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	rec := &models.QueueRecord{
		ID:        uuid.NewString(),
		StationID: stationID,
		Items:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, items []string) (*models.QueueRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.fail) > 0 {
		err := m.fail[0]
		m.fail = m.fail[1:]
		return nil, err
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Items = append([]string(nil), items...)
	rec.UpdatedAt = time.Now().UTC()
	m.updates++
	return cloneRecord(rec), nil
}

// Updates returns the number of successful Update calls.
func (m *MemoryStore) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

// FailNext makes the next len(errs) Update calls fail with errs in order.
func (m *MemoryStore) FailNext(errs ...error) {
	m.mu.Lock()
	m.fail = append(m.fail, errs...)
	m.mu.Unlock()
}

func cloneRecord(rec *models.QueueRecord) *models.QueueRecord {
	out := *rec
	out.Items = append([]string(nil), rec.Items...)
	return &out
}

// RateLimited wraps a store and rejects updates beyond the limiter's rate
// with ErrRateLimited.
type RateLimited struct {
	Store
	limiter *rate.Limiter
}

// NewRateLimited limits updates on store to perSecond with burst.
func NewRateLimited(store Store, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Store: store, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Update(ctx context.Context, id string, items []string) (*models.QueueRecord, error) {
	if !r.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return r.Store.Update(ctx, id, items)
}
