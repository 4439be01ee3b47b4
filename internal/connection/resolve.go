package connection

import (
	"net/url"

	"github.com/nholik/bq-sentinel/internal/credentials"
	"github.com/rs/zerolog"
)

// Target is a resolved connection address.
type Target struct {
	// URL is either "scheme://" or "scheme://<projectId>".
	URL string
	// DefaultProject is the project that was signalled to the environment,
	// empty when no signal was emitted.
	DefaultProject string
}

// Project returns the project encoded in the URL host, if any.
func (t Target) Project() string {
	parsed, err := url.Parse(t.URL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func (t Target) String() string {
	return t.URL
}

// Resolver builds connection targets from service connections.
type Resolver struct {
	env    Environment
	logger zerolog.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithEnvironment overrides where the default-project signal is written.
func WithEnvironment(env Environment) ResolverOption {
	return func(r *Resolver) {
		r.env = env
	}
}

// NewResolver returns a Resolver writing to the process environment.
func NewResolver(logger zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		env:    ProcessEnv(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env == nil {
		r.env = NoEnv{}
	}
	return r
}

// Resolve returns the connection target for conn. It never fails: missing
// project information yields the bare "scheme://" target. When inline values
// carry a project but no private key, the project is also published as
// GOOGLE_CLOUD_PROJECT, at most once per call.
func (r *Resolver) Resolve(conn BigQueryConnection) Target {
	scheme := conn.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	bare := Target{URL: scheme + "://"}

	values, ok := conn.Credentials.GCPConfig.(credentials.Values)
	if !ok {
		return bare
	}

	var projectID string
	switch id := values.ProjectID.(type) {
	case credentials.SingleProjectID:
		projectID = string(id)
	case credentials.MultipleProjectID:
		projectID = firstOfMultiple(id)
	default:
		return bare
	}
	if projectID == "" {
		return bare
	}

	target := Target{URL: scheme + "://" + projectID}
	if !values.HasPrivateKey() {
		r.signalDefaultProject(projectID)
		target.DefaultProject = projectID
	}
	return target
}

// firstOfMultiple applies the multiple-project policy: the connection binds
// to the first configured id and the remaining ids are ignored.
func firstOfMultiple(ids credentials.MultipleProjectID) string {
	id, _ := credentials.FirstProjectID(ids)
	return id
}

func (r *Resolver) signalDefaultProject(projectID string) {
	if err := r.env.Setenv(DefaultProjectEnv, projectID); err != nil {
		r.logger.Warn().Err(err).Str("project_id", projectID).Msg("failed to set default project")
		return
	}
	r.logger.Debug().Str("env", DefaultProjectEnv).Str("project_id", projectID).Msg("default project set")
}
