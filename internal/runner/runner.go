package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nholik/bq-sentinel/internal/config"
	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/healthcheck"
	"github.com/nholik/bq-sentinel/internal/metrics"
	"github.com/nholik/bq-sentinel/internal/state"
	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// ConnectionLoader returns the connection config for a pass.
type ConnectionLoader func() (config.ConnectionFile, error)

// FileLoader reloads the connection file from path on every pass.
func FileLoader(path string) ConnectionLoader {
	return func() (config.ConnectionFile, error) {
		return config.LoadConnectionFile(path)
	}
}

// Runner orchestrates test connection passes.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
	clock         func() time.Time
	name          string

	loadConnection ConnectionLoader
	resolver       *connection.Resolver
	opener         Opener
	sink           testconn.Sink
	notifier       testconn.Sink
	workflowRef    *string

	metrics *metrics.Metrics
	tracker *healthcheck.Tracker

	stateStore state.Store
	stateMu    *sync.Mutex
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle execution step.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(r *Runner) {
		r.runOnce = runOnce
	}
}

// WithName keys persisted state by name instead of by service type.
func WithName(name string) Option {
	return func(r *Runner) {
		r.name = name
	}
}

// WithClock overrides the clock used for step timing and the test statement date.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.clock = now
		}
	}
}

// WithConnectionLoader sets where each pass reads its connection config.
func WithConnectionLoader(loader ConnectionLoader) Option {
	return func(r *Runner) {
		r.loadConnection = loader
	}
}

// WithResolver overrides the address resolver.
func WithResolver(resolver *connection.Resolver) Option {
	return func(r *Runner) {
		r.resolver = resolver
	}
}

// WithOpener overrides how connections are acquired.
func WithOpener(opener Opener) Option {
	return func(r *Runner) {
		r.opener = opener
	}
}

// WithSink sets the sink that receives every report.
func WithSink(sink testconn.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithNotifier sets the sink that receives reports whose steps changed status.
func WithNotifier(notifier testconn.Sink) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// WithWorkflowRef tags reports with a workflow reference.
func WithWorkflowRef(ref *string) Option {
	return func(r *Runner) {
		r.workflowRef = ref
	}
}

// WithMetrics records step outcomes and run timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracker records run results for health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// WithStateStore enables state persistence for transitions.
func WithStateStore(store state.Store, lock *sync.Mutex) Option {
	return func(r *Runner) {
		r.stateStore = store
		r.stateMu = lock
	}
}

// New constructs a Runner with the given logger and poll interval.
func New(logger zerolog.Logger, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		clock:  time.Now,
		opener: OpenBigQuery,
	}
	r.runOnce = r.defaultRunOnce

	for _, opt := range opts {
		opt(r)
	}
	if r.resolver == nil {
		r.resolver = connection.NewResolver(logger)
	}
	if r.stateStore != nil && r.stateMu == nil {
		r.stateMu = &sync.Mutex{}
	}

	return r
}

// Run starts the main loop and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Run immediately on startup
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial run cycle failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("run cycle failed")
			}
		}
	}
}

// RunOnce executes a single cycle of the runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Runner) defaultRunOnce(ctx context.Context) error {
	_, err := r.Check(ctx)
	return err
}

func (r *Runner) withStateLock(fn func() error) error {
	if r.stateMu == nil {
		return fn()
	}
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return fn()
}
