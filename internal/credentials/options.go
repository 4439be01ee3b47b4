package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
)

const (
	defaultAccountType = "service_account"
	defaultAuthURI     = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURI    = "https://oauth2.googleapis.com/token"
	defaultCertURL     = "https://www.googleapis.com/oauth2/v1/certs"
)

// serviceAccountJSON is the on-disk layout of a Google service account key.
type serviceAccountJSON struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id,omitempty"`
	PrivateKeyID            string `json:"private_key_id,omitempty"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id,omitempty"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url,omitempty"`
}

// ClientOptions maps a GCP configuration onto Google API client options.
// Values without a private key and ADC yield no options, leaving the client
// to application default credentials.
func ClientOptions(cfg GCPConfig) ([]option.ClientOption, error) {
	switch c := cfg.(type) {
	case Values:
		if !c.HasPrivateKey() {
			return nil, nil
		}
		data, err := ServiceAccountJSON(c)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithCredentialsJSON(data)}, nil
	case Path:
		if c.Path == "" {
			return nil, errors.New("credentials path is empty")
		}
		return []option.ClientOption{option.WithCredentialsFile(c.Path)}, nil
	case ADC, nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported gcp config %T", cfg)
	}
}

// ServiceAccountJSON renders inline values as a service account key file.
func ServiceAccountJSON(v Values) ([]byte, error) {
	if v.ClientEmail == "" {
		return nil, errors.New("clientEmail is required with privateKey")
	}
	projectID, _ := FirstProjectID(v.ProjectID)
	key := serviceAccountJSON{
		Type:                    withDefault(v.Type, defaultAccountType),
		ProjectID:               projectID,
		PrivateKeyID:            v.PrivateKeyID,
		PrivateKey:              NormalizePrivateKey(v.PrivateKey),
		ClientEmail:             v.ClientEmail,
		ClientID:                v.ClientID,
		AuthURI:                 withDefault(v.AuthURI, defaultAuthURI),
		TokenURI:                withDefault(v.TokenURI, defaultTokenURI),
		AuthProviderX509CertURL: withDefault(v.AuthProviderX509CertURL, defaultCertURL),
		ClientX509CertURL:       v.ClientX509CertURL,
	}
	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encode service account: %w", err)
	}
	return data, nil
}

// NormalizePrivateKey turns escaped "\n" sequences from single-line secrets
// into real newlines.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
