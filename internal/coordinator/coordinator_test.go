package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nholik/bq-sentinel/internal/config"
	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/runner"
	"github.com/nholik/bq-sentinel/internal/state"
	"github.com/rs/zerolog"
)

type fakeConnection struct {
	host string
}

func (f fakeConnection) Ping(context.Context) error                    { return nil }
func (f fakeConnection) Host() string                                  { return f.host }
func (f fakeConnection) SchemaNames(context.Context) ([]string, error) { return nil, nil }
func (f fakeConnection) TableNames(context.Context) ([]string, error)  { return nil, nil }
func (f fakeConnection) ViewNames(context.Context) ([]string, error)   { return nil, nil }
func (f fakeConnection) Exec(context.Context, string) error            { return nil }

type memoryStore struct {
	mu    sync.Mutex
	state state.State
}

func (m *memoryStore) Load(context.Context) (state.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loaded := state.State{Services: map[string]state.Snapshot{}}
	for k, v := range m.state.Services {
		loaded.Services[k] = v
	}
	return loaded, nil
}

func (m *memoryStore) Save(_ context.Context, s state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.state.Services))
	for k := range m.state.Services {
		keys = append(keys, k)
	}
	return keys
}

func fakeOpener(_ context.Context, target connection.Target, _ connection.BigQueryConnection) (*runner.Session, error) {
	return runner.NewSession(fakeConnection{host: target.Project()}, nil, nil), nil
}

func writeConnection(t *testing.T, dir, name, project string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "type: BigQuery\ncredentials:\n  gcpConfig:\n    projectId: " + project + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write connection file: %v", err)
	}
	return path
}

func baseOptions(store state.Store) []runner.Option {
	return []runner.Option{
		runner.WithOpener(fakeOpener),
		runner.WithResolver(connection.NewResolver(zerolog.Nop(), connection.WithEnvironment(connection.NoEnv{}))),
		runner.WithStateStore(store, &sync.Mutex{}),
	}
}

func TestSourcesFromConfig(t *testing.T) {
	sources := SourcesFromConfig(config.Config{ConnectionFile: "/etc/bq/prod.yaml, /etc/bq/dev.yml"})
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "prod" || sources[0].ConnectionFile != "/etc/bq/prod.yaml" {
		t.Fatalf("unexpected first source %+v", sources[0])
	}
	if sources[1].Name != "dev" {
		t.Fatalf("unexpected second source %+v", sources[1])
	}
}

func TestCoordinator_MultipleConnections(t *testing.T) {
	dir := t.TempDir()
	store := &memoryStore{}
	sources := []Source{
		{Name: "prod", ConnectionFile: writeConnection(t, dir, "prod.yaml", "analytics-prod")},
		{Name: "dev", ConnectionFile: writeConnection(t, dir, "dev.yaml", "analytics-dev")},
	}

	coord := New(zerolog.Nop(), config.Config{PollInterval: 50 * time.Millisecond}, sources, baseOptions(store)...)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := coord.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runners := coord.GetRunners()
	if len(runners) != 2 {
		t.Fatalf("expected 2 runners, got %d", len(runners))
	}
	for _, name := range []string{"prod", "dev"} {
		if _, ok := runners[name]; !ok {
			t.Fatalf("expected %s runner", name)
		}
	}

	keys := store.keys()
	if len(keys) != 2 {
		t.Fatalf("expected state for both connections, got %v", keys)
	}
	store.mu.Lock()
	prod := store.state.Services["prod"]
	store.mu.Unlock()
	if prod.Target != "bigquery://analytics-prod" {
		t.Fatalf("unexpected prod target %q", prod.Target)
	}
}

func TestCoordinator_InvalidConnectionFile(t *testing.T) {
	sources := []Source{{Name: "missing", ConnectionFile: filepath.Join(t.TempDir(), "missing.yaml")}}

	coord := New(zerolog.Nop(), config.Config{PollInterval: 50 * time.Millisecond}, sources, baseOptions(&memoryStore{})...)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := coord.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coord.GetRunners()) != 0 {
		t.Fatal("expected no runner for an invalid connection file")
	}
	if err := coord.Errors()["missing"]; err == nil {
		t.Fatal("expected recorded error")
	}
}

func TestCoordinator_GracefulShutdown(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Name: "a", ConnectionFile: writeConnection(t, dir, "a.yaml", "project-a")},
		{Name: "b", ConnectionFile: writeConnection(t, dir, "b.yaml", "project-b")},
	}

	coord := New(zerolog.Nop(), config.Config{PollInterval: 100 * time.Millisecond}, sources, baseOptions(&memoryStore{})...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- coord.Run(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("coordinator did not stop after context cancellation")
	}
}
