// Package credentials models the GCP credential shapes accepted by a
// BigQuery service connection.
//
// GCPConfig and ProjectID are closed unions: the unexported marker methods
// keep implementations inside this package, so a type switch over the known
// variants is exhaustive and a new variant must be handled by every switch
// that cares about it.
package credentials

// Credentials wraps the GCP configuration of a connection.
type Credentials struct {
	GCPConfig GCPConfig `yaml:"gcpConfig"`
}

// GCPConfig is implemented by Values, Path and ADC.
type GCPConfig interface {
	isGCPConfig()
}

// Values carries inline service account values.
type Values struct {
	Type                    string
	ProjectID               ProjectID
	PrivateKeyID            string
	PrivateKey              string
	ClientEmail             string
	ClientID                string
	AuthURI                 string
	TokenURI                string
	AuthProviderX509CertURL string
	ClientX509CertURL       string
}

// Path points to a service account JSON file.
type Path struct {
	Path string
}

// ADC uses application default credentials.
type ADC struct{}

func (Values) isGCPConfig() {}
func (Path) isGCPConfig()   {}
func (ADC) isGCPConfig()    {}

// HasPrivateKey reports whether an inline private key is configured.
func (v Values) HasPrivateKey() bool {
	return v.PrivateKey != ""
}

// ProjectID is implemented by SingleProjectID and MultipleProjectID.
type ProjectID interface {
	isProjectID()
}

// SingleProjectID holds one project id. The empty string means no project.
type SingleProjectID string

// MultipleProjectID holds an ordered list of project ids.
type MultipleProjectID []string

func (SingleProjectID) isProjectID()   {}
func (MultipleProjectID) isProjectID() {}

// FirstProjectID returns the project a connection is bound to: the id of a
// single id, or only the first entry of a multiple id. Additional ids of
// a multiple id are never consulted.
func FirstProjectID(id ProjectID) (string, bool) {
	switch p := id.(type) {
	case SingleProjectID:
		return string(p), p != ""
	case MultipleProjectID:
		if len(p) == 0 {
			return "", false
		}
		return p[0], p[0] != ""
	default:
		return "", false
	}
}
