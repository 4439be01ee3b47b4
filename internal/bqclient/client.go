// Package bqclient adapts the Google BigQuery and Data Catalog SDKs to the
// narrow interfaces used by the test connection probes.
package bqclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/credentials"
)

const (
	pingStatement = "SELECT 1"
	argLocation   = "location"
)

// Client implements testconn.Connection on top of *bigquery.Client.
type Client struct {
	api  *bigquery.Client
	host string
}

// Open builds a client for target. The project the client bills to comes
// from the target host, then from the resolver's default project, and
// finally from the credentials or environment via bigquery.DetectProjectID.
// Host reports only the target host.
func Open(ctx context.Context, target connection.Target, conn connection.BigQueryConnection) (*Client, error) {
	project, err := projectFor(target)
	if err != nil {
		return nil, err
	}

	opts, err := clientOptions(conn)
	if err != nil {
		return nil, err
	}

	api, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if location := conn.ConnectionArguments[argLocation]; location != "" {
		api.Location = location
	}

	return newClient(api, target), nil
}

func newClient(api *bigquery.Client, target connection.Target) *Client {
	return &Client{api: api, host: target.Project()}
}

func projectFor(target connection.Target) (string, error) {
	parsed, err := url.Parse(target.URL)
	if err != nil {
		return "", fmt.Errorf("parse target %q: %w", target.URL, err)
	}
	if parsed.Host != "" {
		return parsed.Host, nil
	}
	if target.DefaultProject != "" {
		return target.DefaultProject, nil
	}
	return bigquery.DetectProjectID, nil
}

func clientOptions(conn connection.BigQueryConnection) ([]option.ClientOption, error) {
	opts, err := credentials.ClientOptions(conn.Credentials.GCPConfig)
	if err != nil {
		return nil, fmt.Errorf("build credentials: %w", err)
	}
	if endpoint := endpointFor(conn.HostPort); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts, nil
}

// endpointFor returns a REST endpoint override, or "" for the public API.
func endpointFor(hostPort string) string {
	hostPort = strings.TrimSpace(hostPort)
	if hostPort == "" || hostPort == connection.DefaultHostPort {
		return ""
	}
	if !strings.Contains(hostPort, "://") {
		hostPort = "https://" + hostPort
	}
	return strings.TrimSuffix(hostPort, "/") + "/bigquery/v2/"
}

// Host returns the project in the target URL, or "" for a bare target even
// when the client detected a project from its credentials.
func (c *Client) Host() string {
	return c.host
}

// Ping runs a trivial query and drains its result.
func (c *Client) Ping(ctx context.Context) error {
	return c.Exec(ctx, pingStatement)
}

// SchemaNames lists dataset ids of the bound project.
func (c *Client) SchemaNames(ctx context.Context) ([]string, error) {
	var names []string
	it := c.api.Datasets(ctx)
	for {
		dataset, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list datasets: %w", err)
		}
		names = append(names, dataset.DatasetID)
	}
}

// TableNames lists regular tables across all datasets as dataset.table.
func (c *Client) TableNames(ctx context.Context) ([]string, error) {
	return c.tablesOfType(ctx, bigquery.RegularTable)
}

// ViewNames lists views across all datasets as dataset.view.
func (c *Client) ViewNames(ctx context.Context) ([]string, error) {
	return c.tablesOfType(ctx, bigquery.ViewTable, bigquery.MaterializedView)
}

func (c *Client) tablesOfType(ctx context.Context, types ...bigquery.TableType) ([]string, error) {
	datasets, err := c.SchemaNames(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, dataset := range datasets {
		it := c.api.Dataset(dataset).Tables(ctx)
		for {
			table, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("list tables in %s: %w", dataset, err)
			}
			meta, err := table.Metadata(ctx)
			if err != nil {
				return nil, fmt.Errorf("table metadata %s.%s: %w", dataset, table.TableID, err)
			}
			if matchesType(meta.Type, types) {
				names = append(names, dataset+"."+table.TableID)
			}
		}
	}
	return names, nil
}

func matchesType(tableType bigquery.TableType, types []bigquery.TableType) bool {
	for _, candidate := range types {
		if tableType == candidate {
			return true
		}
	}
	return false
}

// Exec runs statement and reads every row.
func (c *Client) Exec(ctx context.Context, statement string) error {
	rows, err := c.api.Query(statement).Read(ctx)
	if err != nil {
		return err
	}
	for {
		var row []bigquery.Value
		err := rows.Next(&row)
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}
