package testconn

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const dateLayout = "2006-01-02"

// testStatement reads one job from the usage region. It needs the
// bigquery.jobs.listAll permission that usage ingestion relies on.
var testStatement = template.Must(template.New("test_statement").Option("missingkey=error").Parse(
	"SELECT query FROM `region-{{ .Region }}`.INFORMATION_SCHEMA.JOBS_BY_PROJECT\n" +
		"WHERE creation_time > '{{ .CreationDate }}' limit 1\n",
))

type statementParams struct {
	Region       string
	CreationDate string
}

// RenderTestStatement renders the diagnostic query for region, filtered on
// the UTC calendar date of now.
func RenderTestStatement(region string, now time.Time) (string, error) {
	var buf bytes.Buffer
	params := statementParams{
		Region:       region,
		CreationDate: now.UTC().Format(dateLayout),
	}
	if err := testStatement.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render test statement: %w", err)
	}
	return buf.String(), nil
}
