/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playout runs the dual-deck engine of a station: AutoDJ, crossfades
// and dead-air recovery.
package playout

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/godtalktv/radio-pro-automation/internal/catalog"
	"github.com/godtalktv/radio-pro-automation/internal/deck"
	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/godtalktv/radio-pro-automation/internal/history"
	"github.com/godtalktv/radio-pro-automation/internal/models"
	"github.com/godtalktv/radio-pro-automation/internal/queue"
	"github.com/godtalktv/radio-pro-automation/internal/selector"
	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
	"github.com/rs/zerolog"
)

// cueRetryInterval spaces repeated outro cue attempts on the same track
// when the crossfade could not start.
const cueRetryInterval = 10 * time.Second

// Config holds per-station timing.
type Config struct {
	StationID         string
	CrossfadeDuration time.Duration
	CrossfadeStep     time.Duration
	SettleDelay       time.Duration
	EjectGrace        time.Duration
	ProgressInterval  time.Duration
	WatchdogInterval  time.Duration
	LibraryRefresh    time.Duration
	HistoryLimit      int
	Location          *time.Location
}

func (c Config) withDefaults() Config {
	if c.CrossfadeDuration <= 0 {
		c.CrossfadeDuration = 3 * time.Second
	}
	if c.CrossfadeStep <= 0 {
		c.CrossfadeStep = 50 * time.Millisecond
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = time.Second
	}
	if c.EjectGrace <= 0 {
		c.EjectGrace = 2 * time.Second
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = time.Second
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = time.Second
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// Deps are the collaborators of a session.
type Deps struct {
	Catalog  catalog.Catalog
	Queue    *queue.Manager
	Bus      *events.Bus
	Recorder history.Recorder
	Resolver deck.Resolver
	// Outputs default to virtual outputs.
	OutputA deck.Output
	OutputB deck.Output
	Rand    *rand.Rand
	Now     func() time.Time
	Logger  zerolog.Logger
}

// Snapshot is the read-only view of a session published on every change.
type Snapshot struct {
	StationID          string         `json:"station_id"`
	DeckA              deck.State     `json:"deck_a"`
	DeckB              deck.State     `json:"deck_b"`
	ActiveDeck         deck.ID        `json:"active_deck"`
	Queue              []models.Track `json:"queue"`
	PlayHistory        []models.Track `json:"play_history"`
	IsAutoDJ           bool           `json:"is_auto_dj"`
	AutoDJState        State          `json:"autodj_state"`
	CrossfaderPosition float64        `json:"crossfader_position"`
	IsTransitioning    bool           `json:"is_transitioning"`
	CurrentTrack       *models.Track  `json:"current_track"`
	IsPlaying          bool           `json:"is_playing"`
	Error              string         `json:"error,omitempty"`
}

// Session owns the two decks of one station. Every mutation happens under
// mu; deck goroutines report through events, drained by Run. Lock order is
// session, then deck or queue.
type Session struct {
	cfg      Config
	catalog  catalog.Catalog
	queue    *queue.Manager
	bus      *events.Bus
	recorder history.Recorder
	rng      *rand.Rand
	now      func() time.Time
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan deck.Event

	mu      sync.Mutex
	decks   map[deck.ID]*deck.Deck
	active  deck.ID
	library []models.Track
	history []models.Track
	state   State
	err     string
	closed  bool

	fader float64
	owner faderOwner

	// Transition bookkeeping. fadeGen invalidates the fade ticker and the
	// settle timer; ejectGen invalidates the eject timer.
	transitioning bool
	settling      bool
	fadeKind      string
	fadeGen       uint64
	settleTimer   *time.Timer
	pendingEject  deck.ID
	ejectGen      uint64
	ejectTimer    *time.Timer

	// held is the track an operator paused on each deck. The watchdog
	// leaves a held deck silent.
	held map[deck.ID]*models.Track

	// cueTrack is the active track whose outro cue last fired; its cue may
	// fire again only after cueRetryAt.
	cueTrack   *models.Track
	cueRetryAt time.Time
}

// NewSession creates a session with empty decks, deck A active and the
// fader at -100.
func NewSession(cfg Config, deps Deps) *Session {
	cfg = cfg.withDefaults()
	if deps.Recorder == nil {
		deps.Recorder = history.Nop{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.OutputA == nil {
		deps.OutputA = deck.NewVirtualOutput()
	}
	if deps.OutputB == nil {
		deps.OutputB = deck.NewVirtualOutput()
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := deps.Logger.With().Str("component", "playout").Str("station_id", cfg.StationID).Logger()
	evs := make(chan deck.Event, 64)

	s := &Session{
		cfg:      cfg,
		catalog:  deps.Catalog,
		queue:    deps.Queue,
		bus:      deps.Bus,
		recorder: deps.Recorder,
		rng:      deps.Rand,
		now:      deps.Now,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		events:   evs,
		active:   deck.A,
		state:    StateOff,
		fader:    faderMin,
		held:     make(map[deck.ID]*models.Track),
		decks: map[deck.ID]*deck.Deck{
			deck.A: deck.New(deck.A, deps.OutputA, deps.Resolver, evs, cfg.ProgressInterval, logger),
			deck.B: deck.New(deck.B, deps.OutputB, deps.Resolver, evs, cfg.ProgressInterval, logger),
		},
	}
	s.applyGainsLocked()
	return s
}

// StationID returns the station the session plays for.
func (s *Session) StationID() string { return s.cfg.StationID }

// Start loads the library, restores the queue and seeds play history from
// the as-run log.
func (s *Session) Start(ctx context.Context) error {
	if err := s.RefreshLibrary(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	library := s.library
	s.mu.Unlock()

	lookup := func(ids []string) []models.Track { return pickByID(library, ids) }
	if err := s.queue.Restore(ctx, lookup); err != nil {
		s.logger.Warn().Err(err).Msg("queue restore failed, starting empty")
	}

	recent, err := s.recorder.Recent(ctx, s.cfg.StationID, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history seed failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = pickByID(library, recent)
	s.preloadLocked()
	s.publishLocked()
	s.logger.Info().Int("library", len(library)).Int("queue", s.queue.Len()).Int("history", len(s.history)).Msg("playout session started")
	return nil
}

// Run drains deck events and drives housekeeping until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	watchdog := time.NewTicker(s.cfg.WatchdogInterval)
	defer watchdog.Stop()

	var refresh <-chan time.Time
	if s.cfg.LibraryRefresh > 0 {
		t := time.NewTicker(s.cfg.LibraryRefresh)
		defer t.Stop()
		refresh = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return nil
		case ev := <-s.events:
			s.handleDeckEvent(ev)
		case <-watchdog.C:
			s.housekeep()
		case <-refresh:
			if err := s.RefreshLibrary(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("library refresh failed")
			}
		}
	}
}

// Close stops all timers, ejects both decks and flushes the queue.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancelFadeLocked()
	s.cancelEjectLocked()
	for _, d := range s.decks {
		d.Close()
	}
	s.cancel()
	s.mu.Unlock()

	telemetry.AutoDJActive.DeleteLabelValues(s.cfg.StationID)
	return s.queue.Close(ctx)
}

// RefreshLibrary reloads the playable tracks from the catalog.
func (s *Session) RefreshLibrary(ctx context.Context) error {
	tracks, err := s.catalog.Filter(ctx, models.Track.HasMedia)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.library = tracks
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	a := s.decks[deck.A].State()
	b := s.decks[deck.B].State()
	current := a
	if s.active == deck.B {
		current = b
	}
	return Snapshot{
		StationID:          s.cfg.StationID,
		DeckA:              a,
		DeckB:              b,
		ActiveDeck:         s.active,
		Queue:              s.queue.Items(),
		PlayHistory:        append([]models.Track(nil), s.history...),
		IsAutoDJ:           s.state != StateOff,
		AutoDJState:        s.state,
		CrossfaderPosition: s.fader,
		IsTransitioning:    s.transitioning,
		CurrentTrack:       current.Track,
		IsPlaying:          current.IsPlaying,
		Error:              s.err,
	}
}

func (s *Session) publishLocked() {
	s.bus.Publish(events.EventSessionState, events.Payload{
		"station_id": s.cfg.StationID,
		"snapshot":   s.snapshotLocked(),
	})
}

func (s *Session) handleDeckEvent(ev deck.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	current := s.decks[ev.Deck].State().Track
	switch ev.Kind {
	case deck.EventLoadFailed, deck.EventPlaybackFailed:
		if current != nil && current != ev.Track {
			return
		}
	default:
		if current != ev.Track {
			return
		}
	}

	switch ev.Kind {
	case deck.EventProgress:
		if ev.Deck == s.active {
			s.checkCueLocked(ev)
		}
	case deck.EventEnded:
		if ev.Deck == s.active {
			s.onActiveEndedLocked()
		}
	case deck.EventLoaded:
		s.logger.Debug().Str("deck", string(ev.Deck)).Str("track_id", ev.Track.ID).Msg("deck ready")
	case deck.EventLoadFailed:
		s.reportDeckErrorLocked(ev.Deck, ev.Kind.String(), ev.Err)
	case deck.EventPlaybackFailed:
		s.reportDeckErrorLocked(ev.Deck, ev.Kind.String(), ev.Err)
		s.onActiveFailedLocked(ev.Deck)
	}
	s.publishLocked()
}

// onActiveFailedLocked cuts straight to a ready inactive deck when the
// on-air deck could not start under AutoDJ. Anything else waits for the
// watchdog, which also restarts a lone deck.
func (s *Session) onActiveFailedLocked(id deck.ID) {
	if id != s.active || s.state == StateOff || s.transitioning || s.settling {
		return
	}
	other := s.decks[id.Other()].State()
	if other.Track == nil || other.IsLoading || s.pendingEject == id.Other() {
		return
	}
	s.recoverDeadAirLocked()
}

// checkCueLocked starts the cued crossfade once the active track reaches
// duration - outro_time. Tracks without an outro cue wait for the end.
func (s *Session) checkCueLocked(ev deck.Event) {
	if s.state != StateOnIdle || s.transitioning || s.settling || ev.Track == nil {
		return
	}
	cue, ok := ev.Track.CuePoint(ev.Duration)
	if !ok || ev.Elapsed < cue {
		return
	}
	now := s.now()
	if s.cueTrack == ev.Track && now.Before(s.cueRetryAt) {
		return
	}
	s.cueTrack, s.cueRetryAt = ev.Track, now.Add(cueRetryInterval)
	s.logger.Debug().Float64("elapsed", ev.Elapsed).Float64("cue", cue).Msg("outro cue reached")
	if err := s.startCrossfadeLocked(models.TransitionCrossfade); err != nil {
		s.logger.Debug().Err(err).Msg("cued crossfade not started")
	}
}

func (s *Session) onActiveEndedLocked() {
	if s.state == StateOff || s.transitioning {
		return
	}
	if s.settling {
		s.cancelFadeLocked()
		s.owner = ownerUser
	}
	if err := s.cutLocked(models.TransitionHardCut); err != nil {
		s.logger.Warn().Err(err).Msg("hard cut failed")
	}
}

// cutLocked switches on-air status to the other deck without a fade, loading
// it first when empty.
func (s *Session) cutLocked(kind string) error {
	from := s.active
	to := from.Other()
	target := s.decks[to]

	if s.pendingEject == to {
		s.cancelEjectLocked()
		target.Eject()
	}
	if target.Empty() {
		if err := s.populateLocked(to, true); err != nil {
			return err
		}
	}

	st := target.State()
	if err := target.Play(); err != nil {
		s.reportDeckErrorLocked(to, "playback_failed", err)
		return err
	}

	s.active = to
	s.fader = faderEnd(to)
	s.applyGainsLocked()
	if s.pendingEject == from {
		s.cancelEjectLocked()
	}
	s.decks[from].Eject()
	s.recordPlayLocked(to, st.Track, kind)
	telemetry.TransitionsTotal.WithLabelValues(s.cfg.StationID, kind).Inc()
	s.bus.Publish(events.EventTransition, events.Payload{
		"station_id": s.cfg.StationID,
		"kind":       kind,
		"phase":      "completed",
		"from":       string(from),
		"to":         string(to),
	})
	s.preloadLocked()
	return nil
}

// preloadLocked readies the inactive deck: the queue head first, otherwise
// a selector pick while AutoDJ is on.
func (s *Session) preloadLocked() {
	if s.closed || s.transitioning || s.settling {
		return
	}
	id := s.active.Other()
	if s.pendingEject == id || !s.decks[id].Empty() {
		return
	}
	if s.queue.Len() == 0 && s.state == StateOff {
		return
	}
	if err := s.populateLocked(id, true); err != nil {
		s.logger.Debug().Err(err).Str("deck", string(id)).Msg("preload skipped")
	}
}

// populateLocked loads content into deck id. queueFirst selects the
// preload order; crossfades onto an empty deck try the selector first.
func (s *Session) populateLocked(id deck.ID, queueFirst bool) error {
	sources := []func() (models.Track, bool){s.fromSelectorLocked, s.fromQueueLocked}
	if queueFirst {
		sources = []func() (models.Track, bool){s.fromQueueLocked, s.fromSelectorLocked}
	}

	for _, next := range sources {
		track, ok := next()
		if !ok {
			continue
		}
		t := track
		if err := s.decks[id].Load(s.ctx, &t); err != nil {
			s.reportDeckErrorLocked(id, "load_failed", err)
			continue
		}
		s.logger.Debug().Str("deck", string(id)).Str("track_id", t.ID).Msg("deck loading")
		return nil
	}
	return ErrCrossfadeAbort
}

func (s *Session) fromQueueLocked() (models.Track, bool) {
	track, ok := s.queue.Pop()
	if ok {
		s.bus.Publish(events.EventQueueUpdated, events.Payload{
			"station_id": s.cfg.StationID,
			"queue":      s.queue.Items(),
		})
	}
	return track, ok
}

func (s *Session) fromSelectorLocked() (models.Track, bool) {
	if s.state == StateOff {
		return models.Track{}, false
	}
	track, err := s.pickLocked()
	return track, err == nil
}

// pickLocked asks the selector for a track, avoiding what is already on a
// deck unless nothing else is left.
func (s *Session) pickLocked() (models.Track, error) {
	onDeck := map[string]struct{}{}
	for _, d := range s.decks {
		if t := d.State().Track; t != nil {
			onDeck[t.ID] = struct{}{}
		}
	}
	in := s.selectorInputLocked()
	in.Library = make([]models.Track, 0, len(s.library))
	for _, t := range s.library {
		if _, busy := onDeck[t.ID]; !busy {
			in.Library = append(in.Library, t)
		}
	}

	track, err := selector.Select(in, s.rng)
	if err == nil {
		return track, nil
	}
	in.Library = s.library
	track, err = selector.Select(in, s.rng)
	if err != nil {
		return models.Track{}, ErrSelectionExhausted
	}
	return track, nil
}

func (s *Session) selectorInputLocked() selector.Input {
	return selector.Input{
		Library: s.library,
		History: s.history,
		Active:  s.decks[s.active].State().Track,
		Now:     s.now().In(s.cfg.Location),
	}
}

// QueueHead returns the track that will be loaded next, before any
// selector pick.
func (s *Session) QueueHead() (models.Track, bool) {
	return s.queue.Peek()
}

// Shortlist previews the selector's current candidates.
func (s *Session) Shortlist() ([]selector.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return selector.Shortlist(s.selectorInputLocked())
}

func (s *Session) recordPlayLocked(id deck.ID, track *models.Track, kind string) {
	if track == nil {
		return
	}
	s.history = append([]models.Track{*track}, s.history...)
	if len(s.history) > s.cfg.HistoryLimit {
		s.history = s.history[:s.cfg.HistoryLimit]
	}

	entry := history.Entry{
		StationID:  s.cfg.StationID,
		Track:      *track,
		Deck:       string(id),
		Transition: kind,
		StartedAt:  s.now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.recorder.Record(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Msg("as-run record failed")
		}
	}()

	s.bus.Publish(events.EventNowPlaying, events.Payload{
		"station_id": s.cfg.StationID,
		"deck":       string(id),
		"track":      *track,
		"transition": kind,
	})
}

func (s *Session) reportDeckErrorLocked(id deck.ID, kind string, err error) {
	telemetry.DeckErrorsTotal.WithLabelValues(s.cfg.StationID, string(id), kind).Inc()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.logger.Warn().Err(err).Str("deck", string(id)).Str("kind", kind).Msg("deck error")
	s.bus.Publish(events.EventDeckError, events.Payload{
		"station_id": s.cfg.StationID,
		"deck":       string(id),
		"kind":       kind,
		"error":      msg,
	})
}

// housekeep runs the dead-air watchdog and keeps the inactive deck loaded.
func (s *Session) housekeep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.state != StateOff && !s.transitioning && !s.settling {
		s.recoverDeadAirLocked()
	}
	s.preloadLocked()
	s.publishLocked()
}

func (s *Session) recoverDeadAirLocked() {
	a := s.decks[deck.A].State()
	b := s.decks[deck.B].State()
	if a.IsPlaying || b.IsPlaying || a.IsLoading || b.IsLoading {
		return
	}

	activeDeck := s.decks[s.active]
	if st := activeDeck.State(); s.heldLocked(s.active, st) {
		return
	}

	inactive := s.decks[s.active.Other()].State()
	action := "cut"
	if inactive.Track != nil && s.pendingEject != s.active.Other() {
		if err := s.cutLocked(models.TransitionHardCut); err != nil {
			s.logger.Warn().Err(err).Msg("dead air cut failed")
			return
		}
	} else {
		action = "restart"
		activeDeck.Eject()
		if err := s.populateLocked(s.active, true); err != nil {
			s.logger.Warn().Err(err).Msg("dead air recovery found nothing to play")
			return
		}
		if err := activeDeck.Play(); err != nil {
			s.reportDeckErrorLocked(s.active, "playback_failed", err)
			return
		}
		s.fader = faderEnd(s.active)
		s.applyGainsLocked()
		s.recordPlayLocked(s.active, activeDeck.State().Track, models.TransitionInitial)
	}

	telemetry.DeadAirTotal.WithLabelValues(s.cfg.StationID).Inc()
	s.logger.Warn().Str("action", action).Str("deck", string(s.active)).Msg("dead air recovered")
	s.bus.Publish(events.EventDeadAir, events.Payload{
		"station_id": s.cfg.StationID,
		"action":     action,
		"deck":       string(s.active),
	})
}

// heldLocked reports whether deck id sits on a track an operator paused.
// A failed or finished deck is never held.
func (s *Session) heldLocked(id deck.ID, st deck.State) bool {
	t := s.held[id]
	return t != nil && t == st.Track && st.Error == "" && st.Progress < 100
}

func pickByID(library []models.Track, ids []string) []models.Track {
	byID := make(map[string]models.Track, len(library))
	for _, t := range library {
		byID[t.ID] = t
	}
	out := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func reportFader(stationID string, position float64) {
	telemetry.CrossfaderPosition.WithLabelValues(stationID).Set(position)
}
