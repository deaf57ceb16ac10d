package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/nba-live-service/internal/config"
	"github.com/preston-bernstein/nba-live-service/internal/fanout"
	httpserver "github.com/preston-bernstein/nba-live-service/internal/http"
	"github.com/preston-bernstein/nba-live-service/internal/http/handlers"
	"github.com/preston-bernstein/nba-live-service/internal/http/middleware"
	"github.com/preston-bernstein/nba-live-service/internal/inference"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
	"github.com/preston-bernstein/nba-live-service/internal/moments"
	"github.com/preston-bernstein/nba-live-service/internal/poller"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
	"github.com/preston-bernstein/nba-live-service/internal/store"
)

const relayAttachTimeout = 5 * time.Second

var metricsSetup = metrics.Setup

// Poller defines the minimal poller behavior needed by the server.
type Poller interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	Status() poller.Status
}

// loop is a long-running component started by Run and awaited on shutdown.
type loop struct {
	name string
	run  func(ctx context.Context) error
}

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	provider      providers.DataProvider
	store         *store.LiveStore
	moments       *moments.Cache
	responses     *inference.ResponseCache
	hub           *fanout.Hub
	relay         *relay
	sweeper       *sweeper
	pollers       []Poller
	loops         []loop
	loopsDone     chan struct{}
	httpServer    httpServer
	metricsServer httpServer
	metricsStop   func(context.Context) error
}

// New constructs a server with the configured provider chain, caches and loops.
func New(cfg config.Config, logger *slog.Logger) *Server {
	return newServerWithMetrics(cfg, logger, nil, nil)
}

func newServerWithProvider(cfg config.Config, logger *slog.Logger, provider providers.DataProvider) *Server {
	return newServerWithMetrics(cfg, logger, provider, nil)
}

func newServerWithMetrics(cfg config.Config, logger *slog.Logger, provider providers.DataProvider, recorder *metrics.Recorder) *Server {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)

	if provider == nil {
		provider = newProviderFactory(logger, recorder).build(cfg)
	} else {
		provider = providers.NewRetryingProvider(provider, logger, recorder, normalizeProviderName(cfg.Provider, provider),
			cfg.Upstream.RetryAttempts, cfg.Upstream.RetryBackoff)
	}

	live := store.NewLiveStore(store.Options{
		GameCapacity:  cfg.Cache.GameCapacity,
		EventCapacity: cfg.Cache.EventCapacity,
		ScoreboardTTL: cfg.Cache.ScoreboardTTL,
		EventsTTL:     cfg.Cache.EventsTTL,
		Metrics:       recorder,
	})
	hub := fanout.NewHub(live, fanout.Options{
		Interval:    cfg.Fanout.Interval,
		Debounce:    cfg.Fanout.Debounce,
		SendTimeout: cfg.Fanout.SendTimeout,
		Logger:      logger,
		Metrics:     recorder,
	})
	momentCache := moments.NewCache(cfg.Moments.Retention, cfg.Cache.GameCapacity, nil)
	responses := inference.NewResponseCache(cfg.Inference.CacheTTL, cfg.Inference.CacheMax, nil, recorder)

	detectorOpts := moments.Options{
		Interval:  cfg.Moments.Interval,
		Logger:    logger,
		Metrics:   recorder,
		Publisher: hub,
	}
	loops := []loop{{name: "fanout", run: hub.Run}}
	if batcher := buildBatcher(cfg.Inference, responses, logger, recorder); batcher != nil {
		detectorOpts.Explainer = batcher
		loops = append(loops, loop{name: "inference", run: batcher.Run})
	}
	detector := moments.NewDetector(live, momentCache, detectorOpts)
	loops = append(loops, loop{name: "moments", run: detector.Run})

	scoreboardJob := poller.ScoreboardJob(provider, live, logger)
	scoreboard := poller.New("scoreboard", scoreboardJob, logger, recorder,
		cfg.Polling.ScoreboardInterval, cfg.Polling.FetchTimeout)
	events := poller.New("events", poller.EventsJob(provider, live, logger, cfg.Polling.EventConcurrency), logger, recorder,
		cfg.Polling.EventsInterval, cfg.Polling.FetchTimeout)

	var admin *handlers.AdminHandler
	if cfg.AdminToken != "" {
		admin = handlers.NewAdminHandler(handlers.RefreshFunc(scoreboardJob), cfg.AdminToken, logger)
	}
	httpSrv := buildHTTPServer(cfg, live, momentCache, hub, admin, logger, recorder, scoreboard.Status)

	srv := &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		provider:      provider,
		store:         live,
		moments:       momentCache,
		responses:     responses,
		hub:           hub,
		pollers:       []Poller{scoreboard, events},
		loops:         loops,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		metricsStop:   metricsShutdown,
	}
	srv.sweeper = srv.buildSweeper()
	return srv
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, live *store.LiveStore, httpSrv httpServer, pollers ...Poller) *Server {
	srv := &Server{
		cfg:        cfg,
		logger:     logger,
		store:      live,
		httpServer: httpSrv,
		pollers:    pollers,
	}
	return srv
}

func buildBatcher(cfg config.InferenceConfig, responses *inference.ResponseCache, logger *slog.Logger, recorder *metrics.Recorder) *inference.Batcher {
	if !cfg.Enabled() {
		logging.Info(logger, "inference disabled; moments will not be explained")
		return nil
	}
	gen := inference.NewOpenAIClient(inference.OpenAIConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	limiter := inference.NewLimiter(inference.LimiterConfig{
		RequestsPerMinute: cfg.RPM,
		TokensPerMinute:   cfg.TPM,
		Safety:            cfg.Safety,
		Metrics:           recorder,
	})
	return inference.NewBatcher(gen, inference.BatcherOptions{
		Tick:        cfg.Tick,
		MaxBatch:    cfg.MaxBatch,
		CallTimeout: cfg.CallTimeout,
		Limiter:     limiter,
		Cache:       responses,
		Logger:      logger,
		Metrics:     recorder,
	})
}

func (s *Server) buildSweeper() *sweeper {
	sw, err := newSweeper(s.cfg.Cache.SweepSchedule, s.logger)
	if err != nil {
		logging.Warn(s.logger, "invalid sweep schedule, using default", "error", err)
		sw, _ = newSweeper(defaultSweepSchedule, s.logger)
	}
	maxAge := s.cfg.Cache.SweepMaxAge
	sw.add("live_store", func() int { return s.store.Sweep(maxAge) })
	sw.add("moments", s.moments.Prune)
	sw.add("inference", s.responses.Sweep)
	return sw
}

func buildHTTPServer(cfg config.Config, live *store.LiveStore, momentCache *moments.Cache, hub *fanout.Hub, admin *handlers.AdminHandler, logger *slog.Logger, recorder *metrics.Recorder, statusFn func() poller.Status) httpServer {
	handler := handlers.NewHandler(live, momentCache, hub, logger, statusFn)
	router := httpserver.NewRouter(handler, admin)
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	wrapped := middleware.LoggingMiddleware(logger, recorder, router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      wrapped,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return netHTTPServer{srv: srv}
}

// Run starts the servers, pollers and loops, then waits for context cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)
	s.startRelay(ctx)
	for _, p := range s.pollers {
		p.Start(ctx)
	}
	s.startLoops(ctx)
	if s.sweeper != nil {
		s.sweeper.Start()
	}

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	logging.Info(s.logger, "http server starting", slog.String("addr", s.httpServer.Addr()))
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	logging.Info(s.logger, "metrics server starting", slog.String("addr", s.metricsServer.Addr()))
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

// startRelay connects the redis relay when configured. A relay that cannot
// connect is logged and skipped; the service keeps serving websocket clients.
func (s *Server) startRelay(ctx context.Context) {
	if s.cfg.Fanout.RedisURL == "" || s.hub == nil {
		return
	}
	connectCtx, cancel := context.WithTimeout(ctx, relayAttachTimeout)
	defer cancel()

	r, err := newRelay(connectCtx, s.cfg.Fanout.RedisURL, s.cfg.Fanout.RedisChannel, s.hub, s.logger)
	if err != nil {
		logging.Warn(s.logger, "redis relay disabled", "error", err)
		return
	}
	s.relay = r
	r.attach(connectCtx)
	if s.sweeper != nil {
		s.sweeper.add("redis_relay", func() int {
			attachCtx, cancel := context.WithTimeout(ctx, relayAttachTimeout)
			defer cancel()
			if r.attach(attachCtx) {
				logging.Info(s.logger, "redis relay re-attached")
			}
			return 0
		})
	}
}

func (s *Server) startLoops(ctx context.Context) {
	if len(s.loops) == 0 {
		return
	}
	var g errgroup.Group
	for _, l := range s.loops {
		l := l
		g.Go(func() error {
			logging.Info(s.logger, "loop started", "loop", l.name)
			if err := l.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error(s.logger, "loop exited", err, "loop", l.name)
			}
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	s.loopsDone = done
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, p := range s.pollers {
		if err := p.Stop(shutdownCtx); err != nil {
			logging.Error(s.logger, "failed to stop poller", err)
		}
	}

	if s.loopsDone != nil {
		select {
		case <-s.loopsDone:
		case <-shutdownCtx.Done():
			logging.Warn(s.logger, "loops did not stop before shutdown timeout")
		}
	}

	if s.sweeper != nil {
		if err := s.sweeper.Stop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "sweeper stop failed", "error", err)
		}
	}

	if s.relay != nil {
		if err := s.relay.Close(); err != nil {
			logging.Warn(s.logger, "redis relay close failed", "error", err)
		}
	}
	if s.hub != nil {
		s.hub.Close()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", "error", err)
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", "error", err)
		}
	}

	if s.provider != nil {
		if err := providers.Close(s.provider); err != nil {
			logging.Warn(s.logger, "provider close failed", "error", err)
		}
	}

	logging.Info(s.logger, "shutdown complete")
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", "error", err)
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: readTimeout,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn(logger, name+" server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
