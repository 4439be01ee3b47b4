package testconn

import (
	"context"
	"fmt"
)

const (
	reasonTaxonomyProjectUnset  = "taxonomyProjectID not set"
	reasonTaxonomyLocationUnset = "taxonomyLocation not set"
)

// Taxonomy identifies a policy tag taxonomy by resource name.
type Taxonomy struct {
	Name        string
	DisplayName string
}

// PolicyTag is a single tag of a taxonomy.
type PolicyTag struct {
	Name        string
	DisplayName string
}

// TaxonomyCatalog is the subset of the policy tag manager used by GetTags.
type TaxonomyCatalog interface {
	ListTaxonomies(ctx context.Context, parent string) ([]Taxonomy, error)
	ListPolicyTags(ctx context.Context, taxonomy string) ([]PolicyTag, error)
}

// TagsConfig scopes the taxonomy lookup.
type TagsConfig struct {
	ResolvedProject    string
	TaxonomyProjectIDs []string
	TaxonomyLocation   string
}

// taxonomyProjects returns the resolved project followed by the configured
// taxonomy projects. Duplicates are kept.
func (c TagsConfig) taxonomyProjects() []string {
	projects := make([]string, 0, len(c.TaxonomyProjectIDs)+1)
	if c.ResolvedProject != "" {
		projects = append(projects, c.ResolvedProject)
	}
	return append(projects, c.TaxonomyProjectIDs...)
}

// ProbeTags lists taxonomies for every candidate project and the policy tags
// of the first taxonomy found. An empty catalog passes.
func ProbeTags(catalog TaxonomyCatalog, cfg TagsConfig) Probe {
	return func(ctx context.Context) error {
		projects := cfg.taxonomyProjects()
		if len(projects) == 0 {
			return Skip(reasonTaxonomyProjectUnset)
		}
		if cfg.TaxonomyLocation == "" {
			return Skip(reasonTaxonomyLocationUnset)
		}
		if catalog == nil {
			return fmt.Errorf("taxonomy catalog is not configured")
		}

		var taxonomies []Taxonomy
		for _, project := range projects {
			parent := fmt.Sprintf("projects/%s/locations/%s", project, cfg.TaxonomyLocation)
			found, err := catalog.ListTaxonomies(ctx, parent)
			if err != nil {
				return fmt.Errorf("list taxonomies for %s: %w", parent, err)
			}
			taxonomies = append(taxonomies, found...)
		}

		_, err := firstTaxonomyTags(ctx, catalog, taxonomies)
		return err
	}
}

// firstTaxonomyTags lists the policy tags of the first taxonomy only; tags of
// later taxonomies are not enumerated.
func firstTaxonomyTags(ctx context.Context, catalog TaxonomyCatalog, taxonomies []Taxonomy) ([]PolicyTag, error) {
	if len(taxonomies) == 0 {
		return nil, nil
	}
	first := taxonomies[0].Name
	tags, err := catalog.ListPolicyTags(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("list policy tags for %s: %w", first, err)
	}
	return tags, nil
}
