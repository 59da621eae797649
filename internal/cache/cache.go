/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache keeps station track lists and single tracks in Redis so the
// selector does not hit the database on every pick.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultTrackListTTL = 5 * time.Minute
	DefaultTrackTTL     = time.Hour
	DefaultCooldown     = 30 * time.Second

	namespace = "radiopro:"
)

func trackListKey(stationID string) string { return namespace + "station:" + stationID + ":tracks" }
func trackKey(trackID string) string       { return namespace + "track:" + trackID }

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TrackListTTL time.Duration
	TrackTTL     time.Duration

	// DisableOnError trips the cache for Cooldown after a Redis failure.
	// While tripped every read misses and every write is dropped.
	DisableOnError bool
	Cooldown       time.Duration
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		TrackListTTL:   DefaultTrackListTTL,
		TrackTTL:       DefaultTrackTTL,
		DisableOnError: true,
		Cooldown:       DefaultCooldown,
	}
}

// Cache is a Redis-backed track cache that degrades to always-miss.
type Cache struct {
	client *redis.Client
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	trippedAt time.Time
	now       func() time.Time
}

// New connects to Redis. An unreachable server is not an error; the cache
// starts tripped and retries after the cooldown.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	c := &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		}),
		cfg:    cfg,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, catalog reads go to the database")
		c.trip()
		return c, nil
	}
	c.logger.Info().Str("addr", cfg.RedisAddr).Msg("redis cache ready")
	return c, nil
}

// Close releases the Redis pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// IsAvailable reports whether operations currently reach Redis.
func (c *Cache) IsAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trippedAt.IsZero() || c.now().Sub(c.trippedAt) >= c.cfg.Cooldown
}

func (c *Cache) trip() {
	c.mu.Lock()
	c.trippedAt = c.now()
	c.mu.Unlock()
}

// observe records a Redis failure. A successful call after the cooldown
// closes the breaker again.
func (c *Cache) observe(op string, err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		c.mu.Lock()
		c.trippedAt = time.Time{}
		c.mu.Unlock()
		return nil
	}
	c.logger.Debug().Err(err).Str("operation", op).Msg("redis operation failed")
	if c.cfg.DisableOnError {
		c.trip()
		c.logger.Warn().Dur("cooldown", c.cfg.Cooldown).Msg("cache tripped")
	}
	return err
}

func load[T any](ctx context.Context, c *Cache, kind, key string) (T, bool) {
	var zero T
	if !c.IsAvailable() {
		telemetry.CacheMissesTotal.WithLabelValues(kind).Inc()
		return zero, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if c.observe("get", err) != nil || errors.Is(err, redis.Nil) {
		telemetry.CacheMissesTotal.WithLabelValues(kind).Inc()
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		telemetry.CacheMissesTotal.WithLabelValues(kind).Inc()
		return zero, false
	}
	telemetry.CacheHitsTotal.WithLabelValues(kind).Inc()
	return v, true
}

func (c *Cache) store(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.observe("set", c.client.Set(ctx, key, data, ttl).Err())
}

// GetTracks returns the cached track list for a station.
func (c *Cache) GetTracks(ctx context.Context, stationID string) ([]models.Track, bool) {
	return load[[]models.Track](ctx, c, "tracks", trackListKey(stationID))
}

// SetTracks caches the track list for a station.
func (c *Cache) SetTracks(ctx context.Context, stationID string, tracks []models.Track) error {
	return c.store(ctx, trackListKey(stationID), tracks, c.cfg.TrackListTTL)
}

// GetTrack returns a cached track.
func (c *Cache) GetTrack(ctx context.Context, trackID string) (*models.Track, bool) {
	track, ok := load[models.Track](ctx, c, "track", trackKey(trackID))
	if !ok {
		return nil, false
	}
	return &track, true
}

// SetTrack caches a single track.
func (c *Cache) SetTrack(ctx context.Context, track *models.Track) error {
	return c.store(ctx, trackKey(track.ID), track, c.cfg.TrackTTL)
}

// InvalidateTracks drops a station's list and the named tracks in one round trip.
func (c *Cache) InvalidateTracks(ctx context.Context, stationID string, trackIDs ...string) error {
	if !c.IsAvailable() {
		return nil
	}
	keys := make([]string, 0, len(trackIDs)+1)
	keys = append(keys, trackListKey(stationID))
	for _, id := range trackIDs {
		keys = append(keys, trackKey(id))
	}
	return c.observe("del", c.client.Del(ctx, keys...).Err())
}

// FlushAll removes every radiopro key.
func (c *Cache) FlushAll(ctx context.Context) error {
	if !c.IsAvailable() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, namespace+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.observe("del", c.client.Del(ctx, batch...).Err()); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := c.observe("scan", iter.Err()); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.observe("del", c.client.Del(ctx, batch...).Err())
	}
	return nil
}
