package coordinator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nholik/bq-sentinel/internal/config"
	"github.com/nholik/bq-sentinel/internal/runner"
	"github.com/rs/zerolog"
)

// Source is a named connection file monitored by its own runner.
type Source struct {
	Name           string
	ConnectionFile string
}

// SourcesFromConfig names each configured connection file after its base
// name without extension.
func SourcesFromConfig(cfg config.Config) []Source {
	files := cfg.ConnectionFiles()
	sources := make([]Source, 0, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		sources = append(sources, Source{
			Name:           strings.TrimSuffix(base, filepath.Ext(base)),
			ConnectionFile: path,
		})
	}
	return sources
}

// Coordinator manages multiple Runner instances, one per connection file.
// It spawns runners in parallel and waits for context cancellation.
type Coordinator struct {
	logger       zerolog.Logger
	cfg          config.Config
	sources      []Source
	runnerOpts   []runner.Option
	runners      map[string]*runner.Runner
	runnerErrors map[string]error
	mu           sync.RWMutex
}

// New constructs a Coordinator. opts are applied to every runner before the
// per-source name and connection loader.
func New(logger zerolog.Logger, cfg config.Config, sources []Source, opts ...runner.Option) *Coordinator {
	return &Coordinator{
		logger:       logger,
		cfg:          cfg,
		sources:      sources,
		runnerOpts:   opts,
		runners:      make(map[string]*runner.Runner),
		runnerErrors: make(map[string]error),
	}
}

// Run starts all runners in parallel and blocks until context is canceled.
// Returns nil on clean shutdown; logs any per-runner errors internally.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Int("connections", len(c.sources)).
		Msg("starting coordinator")

	var wg sync.WaitGroup
	for _, source := range c.sources {
		wg.Add(1)
		go c.spawnRunner(ctx, &wg, source)
	}

	wg.Wait()
	c.logger.Info().Msg("all runners stopped")

	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, err := range c.runnerErrors {
		if err != nil {
			c.logger.Error().Err(err).Str("connection", name).Msg("runner error")
		}
	}

	return nil
}

// spawnRunner validates the source's connection file and runs a Runner for it.
func (c *Coordinator) spawnRunner(ctx context.Context, wg *sync.WaitGroup, source Source) {
	defer wg.Done()

	sourceLogger := c.logger.With().
		Str("connection", source.Name).
		Str("connection_file", source.ConnectionFile).
		Logger()

	if _, err := config.LoadConnectionFile(source.ConnectionFile); err != nil {
		sourceLogger.Error().Err(err).Msg("failed to load connection file")
		c.recordError(source.Name, err)
		return
	}

	opts := append([]runner.Option(nil), c.runnerOpts...)
	opts = append(opts,
		runner.WithName(source.Name),
		runner.WithConnectionLoader(runner.FileLoader(source.ConnectionFile)),
	)
	r := runner.New(sourceLogger, c.cfg.PollInterval, opts...)

	c.mu.Lock()
	c.runners[source.Name] = r
	c.mu.Unlock()

	sourceLogger.Info().Msg("runner started")

	if err := r.Run(ctx); err != nil {
		sourceLogger.Error().Err(err).Msg("runner exited with error")
		c.recordError(source.Name, err)
	} else {
		sourceLogger.Info().Msg("runner exited cleanly")
	}
}

// recordError records a per-source error for later reporting.
func (c *Coordinator) recordError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runnerErrors[name] = err
}

// GetRunners returns a copy of the runners map for testing.
func (c *Coordinator) GetRunners() map[string]*runner.Runner {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*runner.Runner, len(c.runners))
	for k, v := range c.runners {
		result[k] = v
	}
	return result
}

// Errors returns a copy of the recorded per-source errors.
func (c *Coordinator) Errors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]error, len(c.runnerErrors))
	for k, v := range c.runnerErrors {
		result[k] = v
	}
	return result
}
