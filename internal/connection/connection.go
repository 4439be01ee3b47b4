package connection

import (
	"github.com/nholik/bq-sentinel/internal/credentials"
)

const (
	DefaultServiceType   = "BigQuery"
	DefaultScheme        = "bigquery"
	DefaultHostPort      = "bigquery.googleapis.com"
	DefaultUsageLocation = "us"
)

// BigQueryConnection is the service connection configuration for BigQuery.
type BigQueryConnection struct {
	Type                string                  `yaml:"type"`
	Scheme              string                  `yaml:"scheme"`
	HostPort            string                  `yaml:"hostPort"`
	Credentials         credentials.Credentials `yaml:"credentials"`
	TaxonomyProjectIDs  []string                `yaml:"taxonomyProjectID"`
	TaxonomyLocation    string                  `yaml:"taxonomyLocation"`
	UsageLocation       string                  `yaml:"usageLocation"`
	ConnectionArguments map[string]string       `yaml:"connectionArguments"`
}

// WithDefaults fills unset fields with their documented defaults.
func (c BigQueryConnection) WithDefaults() BigQueryConnection {
	if c.Type == "" {
		c.Type = DefaultServiceType
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.HostPort == "" {
		c.HostPort = DefaultHostPort
	}
	if c.UsageLocation == "" {
		c.UsageLocation = DefaultUsageLocation
	}
	if c.Credentials.GCPConfig == nil {
		c.Credentials.GCPConfig = credentials.ADC{}
	}
	return c
}
