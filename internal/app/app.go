// Package app wires the Diction subsystems into a running service.
//
// The App struct owns the full lifecycle: New builds the transcription tiers,
// the assessment service, the history store and the HTTP server; Run serves
// until the context is cancelled; Shutdown releases what New acquired.
//
// For testing, inject doubles via functional options (WithHistoryStore,
// WithMetrics, ...). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/diction/internal/align"
	"github.com/MrWong99/diction/internal/api"
	"github.com/MrWong99/diction/internal/assess"
	"github.com/MrWong99/diction/internal/config"
	"github.com/MrWong99/diction/internal/feedback"
	"github.com/MrWong99/diction/internal/health"
	"github.com/MrWong99/diction/internal/history"
	"github.com/MrWong99/diction/internal/history/postgres"
	"github.com/MrWong99/diction/internal/observe"
	"github.com/MrWong99/diction/internal/resilience"
	"github.com/MrWong99/diction/internal/transcribe"
	"github.com/MrWong99/diction/pkg/provider/stt"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// App owns all subsystem lifetimes.
type App struct {
	cfg    *config.Config
	remote stt.Provider

	history  history.Store
	metrics  *observe.Metrics
	gatherer prometheus.Gatherer
	listener net.Listener

	orchestrator *transcribe.Orchestrator
	service      *assess.Service
	handler      http.Handler
	server       *http.Server

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects a history store instead of creating one from config.
func WithHistoryStore(s history.Store) Option {
	return func(a *App) { a.history = s }
}

// WithMetrics injects the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithGatherer sets the Prometheus gatherer served on /metrics. Defaults to
// [prometheus.DefaultGatherer].
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) { a.gatherer = g }
}

// WithListener makes Run serve on l instead of listening on
// cfg.Server.ListenAddr.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// New creates an App. remote is the configured remote transcription provider
// and may be nil, in which case every transcript is simulated.
func New(ctx context.Context, cfg *config.Config, remote stt.Provider, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, remote: remote}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.gatherer == nil {
		a.gatherer = prometheus.DefaultGatherer
	}

	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}
	if err := a.initTranscription(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init transcription: %w", err)
	}
	if err := a.initService(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init assessment: %w", err)
	}
	a.initHTTP()
	return a, nil
}

// initHistory opens the configured history backend unless one was injected.
func (a *App) initHistory(ctx context.Context) error {
	if a.history != nil {
		return nil
	}
	switch a.cfg.History.Backend {
	case config.HistoryFile:
		a.history = history.NewFileStore(a.cfg.History.Path)
	case config.HistoryPostgres:
		store, err := postgres.NewStore(ctx, a.cfg.History.PostgresDSN)
		if err != nil {
			return err
		}
		a.history = store
	default:
		return nil
	}
	a.closers = append(a.closers, a.history.Close)
	slog.Info("assessment history enabled", "backend", a.cfg.History.Backend)
	return nil
}

// initTranscription builds the simulated tier and, when a provider is
// configured, the remote tier in front of it.
func (a *App) initTranscription() error {
	fb := a.cfg.Fallback
	simOpts := []transcribe.SimulatedOption{
		transcribe.WithMode(transcribe.Mode(fb.Mode)),
		transcribe.WithAccuracyRange(fb.MinAccuracy, fb.MaxAccuracy),
	}
	if fb.Seed != 0 {
		simOpts = append(simOpts, transcribe.WithRand(rand.New(rand.NewPCG(fb.Seed, fb.Seed))))
	}
	sim, err := transcribe.NewSimulated(simOpts...)
	if err != nil {
		return err
	}

	opts := []transcribe.Option{
		transcribe.WithMetrics(a.metrics),
		transcribe.WithCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  fb.CircuitBreaker.MaxFailures,
			ResetTimeout: fb.CircuitBreaker.ResetTimeout,
			HalfOpenMax:  fb.CircuitBreaker.HalfOpenMax,
		}),
	}
	if a.remote != nil {
		name := a.cfg.Transcription.Provider.Name
		if name == "" {
			name = "remote"
		}
		opts = append(opts, transcribe.WithRemote(
			transcribe.NewRemote(name, a.remote, transcribe.WithRemoteMetrics(a.metrics)),
		))
	}
	a.orchestrator = transcribe.New(sim, opts...)
	return nil
}

func (a *App) initService() error {
	aligner, err := align.ForMode(align.Mode(a.cfg.Assessment.Alignment))
	if err != nil {
		return err
	}

	var synth *feedback.Synthesizer
	if seed := a.cfg.Assessment.FeedbackSeed; seed != 0 {
		synth = feedback.NewSynthesizer(rand.New(rand.NewPCG(seed, seed)))
	} else {
		synth = feedback.NewSynthesizer(nil)
	}

	opts := []assess.Option{
		assess.WithAligner(aligner),
		assess.WithSynthesizer(synth),
		assess.WithDefaultLanguage(a.cfg.Assessment.DefaultLanguage),
		assess.WithMetrics(a.metrics),
	}
	if a.history != nil {
		opts = append(opts, assess.WithHistory(a.history, string(a.cfg.History.Backend)))
	}
	a.service = assess.New(a.orchestrator, opts...)
	return nil
}

func (a *App) initHTTP() {
	mux := http.NewServeMux()
	api.New(a.service, api.WithMaxAudioBytes(a.cfg.Server.MaxAudioBytes)).Register(mux)

	checkers := []health.Checker{{
		Name:     "transcription",
		Check:    a.orchestrator.CheckRemote,
		Optional: true,
	}}
	if a.history != nil {
		checkers = append(checkers, health.Checker{Name: "history", Check: a.history.Ping})
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	a.handler = observe.Middleware(a.metrics)(mux)
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Handler returns the root HTTP handler, including middleware.
func (a *App) Handler() http.Handler { return a.handler }

// Service returns the assessment service.
func (a *App) Service() *assess.Service { return a.service }

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// It returns nil after a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.cfg.Server.ListenAddr)
		if err != nil {
			return fmt.Errorf("app: listen on %q: %w", a.cfg.Server.ListenAddr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(sctx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Shutdown releases the history store and other resources acquired by New.
// It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll runs the closers registered so far after a failed New.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
}
