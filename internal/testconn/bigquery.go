package testconn

import (
	"context"
	"fmt"
	"time"

	"github.com/nholik/bq-sentinel/internal/connection"
)

// Step names, in table order.
const (
	StepCheckAccess = "CheckAccess"
	StepGetSchemas  = "GetSchemas"
	StepGetTables   = "GetTables"
	StepGetViews    = "GetViews"
	StepGetTags     = "GetTags"
	StepGetQueries  = "GetQueries"
)

// Connection is the driver surface the probes need.
type Connection interface {
	Ping(ctx context.Context) error
	// Host is the project the connection resolved to, or "".
	Host() string
	SchemaNames(ctx context.Context) ([]string, error)
	TableNames(ctx context.Context) ([]string, error)
	ViewNames(ctx context.Context) ([]string, error)
	Exec(ctx context.Context, statement string) error
}

// BigQuerySteps builds the six-step BigQuery test connection table.
func BigQuerySteps(conn Connection, catalog TaxonomyCatalog, cfg connection.BigQueryConnection, now func() time.Time) []Step {
	if now == nil {
		now = time.Now
	}
	return []Step{
		{Name: StepCheckAccess, Probe: conn.Ping},
		{Name: StepGetSchemas, Probe: listProbe(conn.SchemaNames)},
		{Name: StepGetTables, Probe: listProbe(conn.TableNames)},
		{Name: StepGetViews, Probe: listProbe(conn.ViewNames)},
		{Name: StepGetTags, Probe: ProbeTags(catalog, TagsConfig{
			ResolvedProject:    conn.Host(),
			TaxonomyProjectIDs: cfg.TaxonomyProjectIDs,
			TaxonomyLocation:   cfg.TaxonomyLocation,
		})},
		{Name: StepGetQueries, Probe: queryProbe(conn, cfg.UsageLocation, now)},
	}
}

func listProbe(list func(context.Context) ([]string, error)) Probe {
	return func(ctx context.Context) error {
		_, err := list(ctx)
		return err
	}
}

func queryProbe(conn Connection, region string, now func() time.Time) Probe {
	return func(ctx context.Context) error {
		statement, err := RenderTestStatement(region, now())
		if err != nil {
			return err
		}
		if err := conn.Exec(ctx, statement); err != nil {
			return fmt.Errorf("execute test statement: %w", err)
		}
		return nil
	}
}
