package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nholik/bq-sentinel/internal/config"
	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/credentials"
	"github.com/nholik/bq-sentinel/internal/healthcheck"
	"github.com/nholik/bq-sentinel/internal/state"
	"github.com/nholik/bq-sentinel/internal/testconn"
	"github.com/rs/zerolog"
)

type fakeConnection struct {
	host     string
	tableErr error
	closed   bool
}

func (f *fakeConnection) Ping(context.Context) error { return nil }
func (f *fakeConnection) Host() string               { return f.host }
func (f *fakeConnection) SchemaNames(context.Context) ([]string, error) {
	return []string{"analytics"}, nil
}
func (f *fakeConnection) TableNames(context.Context) ([]string, error) {
	return []string{"events"}, f.tableErr
}
func (f *fakeConnection) ViewNames(context.Context) ([]string, error) { return nil, nil }
func (f *fakeConnection) Exec(context.Context, string) error          { return nil }

type memoryStore struct {
	mu    sync.Mutex
	state state.State
	saves int
}

func (m *memoryStore) Load(context.Context) (state.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memoryStore) Save(_ context.Context, s state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.saves++
	return nil
}

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Report(context.Context, testconn.Report) error {
	s.calls++
	return s.err
}

type recordingEnv struct {
	values map[string]string
}

func (e *recordingEnv) Setenv(key, value string) error {
	if e.values == nil {
		e.values = map[string]string{}
	}
	e.values[key] = value
	return nil
}

func staticLoader(conn connection.BigQueryConnection) ConnectionLoader {
	return func() (config.ConnectionFile, error) {
		return config.ConnectionFile{Connection: conn.WithDefaults(), Fingerprint: "abc123"}, nil
	}
}

func adcProjectConnection(project string) connection.BigQueryConnection {
	return connection.BigQueryConnection{
		Credentials: credentials.Credentials{
			GCPConfig: credentials.Values{ProjectID: credentials.SingleProjectID(project)},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
}

func TestCheckRunsStepsAgainstResolvedTarget(t *testing.T) {
	conn := &fakeConnection{host: "my-project"}
	env := &recordingEnv{}
	var gotTarget connection.Target
	sink := &countingSink{}

	r := New(zerolog.Nop(), time.Minute,
		WithConnectionLoader(staticLoader(adcProjectConnection("my-project"))),
		WithResolver(connection.NewResolver(zerolog.Nop(), connection.WithEnvironment(env))),
		WithOpener(func(_ context.Context, target connection.Target, _ connection.BigQueryConnection) (*Session, error) {
			gotTarget = target
			return NewSession(conn, nil, func() error {
				conn.closed = true
				return nil
			}), nil
		}),
		WithSink(sink),
		WithClock(fixedClock),
	)

	report, err := r.Check(context.Background())
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}

	if gotTarget.URL != "bigquery://my-project" || gotTarget.DefaultProject != "my-project" {
		t.Fatalf("unexpected target %+v", gotTarget)
	}
	if env.values[connection.DefaultProjectEnv] != "my-project" {
		t.Fatalf("expected default project signal, got %v", env.values)
	}
	if !conn.closed {
		t.Fatal("expected session to be closed")
	}
	if sink.calls != 1 {
		t.Fatalf("expected one sink call, got %d", sink.calls)
	}
	if len(report.Steps) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(report.Steps))
	}
	if report.ServiceType != connection.DefaultServiceType {
		t.Fatalf("unexpected service type %q", report.ServiceType)
	}
	tags, _ := report.Result(testconn.StepGetTags)
	if tags.Status != testconn.StatusSkipped {
		t.Fatalf("expected GetTags skipped, got %+v", tags)
	}
	if report.Failed() {
		t.Fatalf("expected no failures, got %+v", report.Steps)
	}
}

func TestCheckSurfacesOpenFailure(t *testing.T) {
	openErr := errors.New("no credentials")
	r := New(zerolog.Nop(), time.Minute,
		WithConnectionLoader(staticLoader(adcProjectConnection("p"))),
		WithResolver(connection.NewResolver(zerolog.Nop(), connection.WithEnvironment(connection.NoEnv{}))),
		WithOpener(func(context.Context, connection.Target, connection.BigQueryConnection) (*Session, error) {
			return nil, openErr
		}),
	)

	_, err := r.Check(context.Background())
	var runtimeErr *RuntimeError
	if !errors.As(err, &runtimeErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if runtimeErr.Op != OpOpenConnection || !errors.Is(err, openErr) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCheckSurfacesLoadFailure(t *testing.T) {
	r := New(zerolog.Nop(), time.Minute,
		WithConnectionLoader(func() (config.ConnectionFile, error) {
			return config.ConnectionFile{}, errors.New("missing file")
		}),
	)

	_, err := r.Check(context.Background())
	var runtimeErr *RuntimeError
	if !errors.As(err, &runtimeErr) || runtimeErr.Op != OpLoadConnection {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestCheckReturnsReportWithSinkError(t *testing.T) {
	r := New(zerolog.Nop(), time.Minute,
		WithConnectionLoader(staticLoader(adcProjectConnection("p"))),
		WithResolver(connection.NewResolver(zerolog.Nop(), connection.WithEnvironment(connection.NoEnv{}))),
		WithOpener(func(context.Context, connection.Target, connection.BigQueryConnection) (*Session, error) {
			return NewSession(&fakeConnection{host: "p"}, nil, nil), nil
		}),
		WithSink(&countingSink{err: errors.New("sink down")}),
	)

	report, err := r.Check(context.Background())
	var runtimeErr *RuntimeError
	if !errors.As(err, &runtimeErr) || runtimeErr.Op != OpReport {
		t.Fatalf("expected report error, got %v", err)
	}
	if len(report.Steps) != 6 {
		t.Fatalf("expected report to be returned, got %+v", report)
	}
}

func TestCheckNotifiesOnlyOnTransitions(t *testing.T) {
	conn := &fakeConnection{host: "p"}
	store := &memoryStore{}
	notifier := &countingSink{}
	tracker := healthcheck.NewTracker()

	r := New(zerolog.Nop(), time.Minute,
		WithConnectionLoader(staticLoader(adcProjectConnection("p"))),
		WithResolver(connection.NewResolver(zerolog.Nop(), connection.WithEnvironment(connection.NoEnv{}))),
		WithOpener(func(context.Context, connection.Target, connection.BigQueryConnection) (*Session, error) {
			return NewSession(conn, nil, nil), nil
		}),
		WithStateStore(store, nil),
		WithNotifier(notifier),
		WithTracker(tracker),
	)

	ctx := context.Background()

	// First run: GetTags is skipped, which counts as a transition.
	if _, err := r.Check(ctx); err != nil {
		t.Fatalf("first Check error: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected notification on first run, got %d", notifier.calls)
	}

	if _, err := r.Check(ctx); err != nil {
		t.Fatalf("second Check error: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected no notification without changes, got %d", notifier.calls)
	}

	conn.tableErr = errors.New("access denied")
	if _, err := r.Check(ctx); err != nil {
		t.Fatalf("third Check error: %v", err)
	}
	if notifier.calls != 2 {
		t.Fatalf("expected notification after failure, got %d", notifier.calls)
	}

	snapshot, ok := store.state.Services[connection.DefaultServiceType]
	if !ok {
		t.Fatalf("expected snapshot for service, got %+v", store.state)
	}
	if snapshot.ConfigFingerprint != "abc123" || snapshot.Target != "bigquery://p" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if status, _ := snapshot.StepStatus(testconn.StepGetTables); status != testconn.StatusFailed {
		t.Fatalf("expected GetTables failed in snapshot, got %s", status)
	}
	if store.saves != 3 {
		t.Fatalf("expected 3 saves, got %d", store.saves)
	}
	if !tracker.Ready() {
		t.Fatal("expected tracker to be ready")
	}
	if snap := tracker.Snapshot(); snap.StepsFailed != 1 {
		t.Fatalf("expected tracker to record one failed step, got %+v", snap)
	}
}

func TestUnavailableCatalogFailsTagsProbe(t *testing.T) {
	catalog := unavailableCatalog{err: errors.New("permission denied")}
	probe := testconn.ProbeTags(catalog, testconn.TagsConfig{ResolvedProject: "p", TaxonomyLocation: "us"})
	if err := probe(context.Background()); err == nil {
		t.Fatal("expected probe to fail")
	}
}

func TestSessionCloseNil(t *testing.T) {
	var s *Session
	if err := s.Close(); err != nil {
		t.Fatalf("nil session Close error: %v", err)
	}
}
