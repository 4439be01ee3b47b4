package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/nholik/bq-sentinel/internal/bqclient"
	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Session holds the clients opened for a single pass. Nothing is cached
// between passes.
type Session struct {
	Conn    testconn.Connection
	Catalog testconn.TaxonomyCatalog
	close   func() error
}

// NewSession wraps already opened clients. closeFn may be nil.
func NewSession(conn testconn.Connection, catalog testconn.TaxonomyCatalog, closeFn func() error) *Session {
	return &Session{Conn: conn, Catalog: catalog, close: closeFn}
}

// Close releases the session's clients.
func (s *Session) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Opener acquires a connection for a resolved target.
type Opener func(ctx context.Context, target connection.Target, conn connection.BigQueryConnection) (*Session, error)

// OpenBigQuery is the production Opener. A failure to open the BigQuery
// client is fatal for the pass; a failure to open the catalog only fails the
// tags probe.
func OpenBigQuery(ctx context.Context, target connection.Target, conn connection.BigQueryConnection) (*Session, error) {
	client, err := bqclient.Open(ctx, target, conn)
	if err != nil {
		return nil, err
	}

	var catalog testconn.TaxonomyCatalog
	catalogClient, err := bqclient.OpenCatalog(ctx, conn)
	if err != nil {
		catalog = unavailableCatalog{err: err}
	} else {
		catalog = catalogClient
	}

	return NewSession(client, catalog, func() error {
		var closeErr error
		if catalogClient != nil {
			closeErr = catalogClient.Close()
		}
		return errors.Join(client.Close(), closeErr)
	}), nil
}

type unavailableCatalog struct {
	err error
}

func (c unavailableCatalog) ListTaxonomies(context.Context, string) ([]testconn.Taxonomy, error) {
	return nil, fmt.Errorf("data catalog unavailable: %w", c.err)
}

func (c unavailableCatalog) ListPolicyTags(context.Context, string) ([]testconn.PolicyTag, error) {
	return nil, fmt.Errorf("data catalog unavailable: %w", c.err)
}
