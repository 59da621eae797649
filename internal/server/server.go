/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/godtalktv/radio-pro-automation/internal/api"
	"github.com/godtalktv/radio-pro-automation/internal/cache"
	"github.com/godtalktv/radio-pro-automation/internal/catalog"
	"github.com/godtalktv/radio-pro-automation/internal/config"
	"github.com/godtalktv/radio-pro-automation/internal/db"
	"github.com/godtalktv/radio-pro-automation/internal/eventbus"
	"github.com/godtalktv/radio-pro-automation/internal/events"
	"github.com/godtalktv/radio-pro-automation/internal/history"
	"github.com/godtalktv/radio-pro-automation/internal/logbuffer"
	"github.com/godtalktv/radio-pro-automation/internal/media"
	"github.com/godtalktv/radio-pro-automation/internal/playout"
	"github.com/godtalktv/radio-pro-automation/internal/queue"
	"github.com/godtalktv/radio-pro-automation/internal/queuestore"
	"github.com/godtalktv/radio-pro-automation/internal/telemetry"
)

const dbMetricsInterval = 15 * time.Second

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	logs    *logbuffer.Buffer
	db      *gorm.DB
	cache   *cache.Cache
	bus     *events.Bus
	playout *playout.Manager
	relay   *eventbus.Relay

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, logs *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	// websocket upgrades must not be cut off by the request timeout
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  router,
		logs:    logs,
		bus:     events.NewBus(),
		playout: playout.NewManager(logger),
	}

	if err := srv.initDependencies(ctx); err != nil {
		_ = srv.Close(context.Background())
		return nil, err
	}

	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(srv.router, "radiopro-api"),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies(ctx context.Context) error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		c, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
		s.cache = c
		s.DeferClose(c.Close)
	}

	var s3 *media.S3Fetcher
	if s.cfg.S3Bucket != "" {
		s3, err = media.NewS3Fetcher(ctx, media.S3Config{
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			UsePathStyle:    s.cfg.S3UsePathStyle,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("init s3 media: %w", err)
		}
	}
	resolver := media.NewResolver(s.cfg.MediaRoot, s3, s.logger)

	var queueStore queuestore.Store = queuestore.NewGormStore(database)
	queueStore = queuestore.NewRateLimited(queueStore, s.cfg.QueueWritesPerSec, s.cfg.QueueWriteBurst)
	recorder := history.NewGormRecorder(database)

	for _, stationID := range s.cfg.StationIDs {
		var cat catalog.Catalog = catalog.NewGorm(database, stationID)
		if s.cache != nil {
			cat = catalog.NewCached(cat, s.cache, stationID)
		}

		q := queue.New(stationID, queueStore, queue.Options{
			Debounce:     s.cfg.QueueDebounce,
			RetryBackoff: s.cfg.QueueRetryBackoff,
		}, s.logger)

		session := playout.NewSession(s.sessionConfig(stationID), playout.Deps{
			Catalog:  cat,
			Queue:    q,
			Bus:      s.bus,
			Recorder: recorder,
			Resolver: resolver,
			Logger:   s.logger,
		})
		if err := s.playout.Add(session); err != nil {
			return err
		}
	}

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		conn, err := eventbus.Connect(natsCfg, s.logger)
		if err != nil {
			return err
		}
		s.DeferClose(func() error { return conn.Drain() })
		s.relay = eventbus.NewRelay(conn, s.bus, s.logger)
	}

	s.logger.Info().Strs("stations", s.cfg.StationIDs).Msg("dependencies initialized")
	return nil
}

func (s *Server) sessionConfig(stationID string) playout.Config {
	return playout.Config{
		StationID:         stationID,
		CrossfadeDuration: s.cfg.CrossfadeDuration,
		CrossfadeStep:     s.cfg.CrossfadeStep,
		SettleDelay:       s.cfg.SettleDelay,
		EjectGrace:        s.cfg.EjectGrace,
		ProgressInterval:  s.cfg.ProgressInterval,
		WatchdogInterval:  s.cfg.WatchdogInterval,
		LibraryRefresh:    s.cfg.LibraryRefresh,
		Location:          s.cfg.Location(),
	}
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	api.New([]byte(s.cfg.JWTSigningKey), s.playout, s.bus, s.logger).WithLogs(s.logs).Routes(s.router)
}

// Start launches the station sessions and background workers.
func (s *Server) Start(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	s.bgCancel = cancel

	if err := s.playout.Start(bgCtx); err != nil {
		return fmt.Errorf("start playout: %w", err)
	}

	if s.relay != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.relay.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("event relay exited")
			}
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(dbMetricsInterval)
		defer ticker.Stop()
		for {
			db.UpdateConnectionMetrics(s.db)
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer exposes the API server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the Prometheus endpoint server.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close stops the sessions, flushing their queues, then releases owned
// resources in reverse order.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.playout != nil {
		if err := s.playout.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgWG.Wait()
		s.bgCancel = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
