package bqclient

import (
	"context"
	"errors"
	"fmt"

	datacatalog "cloud.google.com/go/datacatalog/apiv1"
	"cloud.google.com/go/datacatalog/apiv1/datacatalogpb"
	"google.golang.org/api/iterator"

	"github.com/nholik/bq-sentinel/internal/connection"
	"github.com/nholik/bq-sentinel/internal/credentials"
	"github.com/nholik/bq-sentinel/internal/testconn"
)

// Catalog implements testconn.TaxonomyCatalog with the Data Catalog policy
// tag manager.
type Catalog struct {
	api *datacatalog.PolicyTagManagerClient
}

// OpenCatalog creates a policy tag manager client with the connection's credentials.
func OpenCatalog(ctx context.Context, conn connection.BigQueryConnection) (*Catalog, error) {
	opts, err := credentials.ClientOptions(conn.Credentials.GCPConfig)
	if err != nil {
		return nil, fmt.Errorf("build credentials: %w", err)
	}
	api, err := datacatalog.NewPolicyTagManagerClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create policy tag manager client: %w", err)
	}
	return &Catalog{api: api}, nil
}

// ListTaxonomies lists taxonomies under parent ("projects/<id>/locations/<loc>").
func (c *Catalog) ListTaxonomies(ctx context.Context, parent string) ([]testconn.Taxonomy, error) {
	var taxonomies []testconn.Taxonomy
	it := c.api.ListTaxonomies(ctx, &datacatalogpb.ListTaxonomiesRequest{Parent: parent})
	for {
		taxonomy, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return taxonomies, nil
		}
		if err != nil {
			return nil, err
		}
		taxonomies = append(taxonomies, testconn.Taxonomy{
			Name:        taxonomy.GetName(),
			DisplayName: taxonomy.GetDisplayName(),
		})
	}
}

// ListPolicyTags lists the policy tags of a taxonomy.
func (c *Catalog) ListPolicyTags(ctx context.Context, taxonomy string) ([]testconn.PolicyTag, error) {
	var tags []testconn.PolicyTag
	it := c.api.ListPolicyTags(ctx, &datacatalogpb.ListPolicyTagsRequest{Parent: taxonomy})
	for {
		tag, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return tags, nil
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, testconn.PolicyTag{
			Name:        tag.GetName(),
			DisplayName: tag.GetDisplayName(),
		})
	}
}

// Close releases the underlying client.
func (c *Catalog) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}
