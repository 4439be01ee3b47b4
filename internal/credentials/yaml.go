package credentials

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// valuesDocument is the YAML form of Values.
type valuesDocument struct {
	Type                    string    `yaml:"type"`
	ProjectID               yaml.Node `yaml:"projectId"`
	PrivateKeyID            string    `yaml:"privateKeyId"`
	PrivateKey              string    `yaml:"privateKey"`
	ClientEmail             string    `yaml:"clientEmail"`
	ClientID                string    `yaml:"clientId"`
	AuthURI                 string    `yaml:"authUri"`
	TokenURI                string    `yaml:"tokenUri"`
	AuthProviderX509CertURL string    `yaml:"authProviderX509CertUrl"`
	ClientX509CertURL       string    `yaml:"clientX509CertUrl"`
}

// UnmarshalYAML decodes the gcpConfig union:
//
//	gcpConfig: {path: /secrets/sa.json}   -> Path
//	gcpConfig: {} or {adc: true}          -> ADC
//	gcpConfig: {projectId: ..., ...}      -> Values
func (c *Credentials) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.New("credentials must be a mapping")
	}
	gcp := mappingValue(node, "gcpConfig")
	if gcp == nil {
		c.GCPConfig = ADC{}
		return nil
	}
	cfg, err := decodeGCPConfig(gcp)
	if err != nil {
		return fmt.Errorf("gcpConfig: %w", err)
	}
	c.GCPConfig = cfg
	return nil
}

func decodeGCPConfig(node *yaml.Node) (GCPConfig, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return ADC{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("must be a mapping")
	}
	if len(node.Content) == 0 {
		return ADC{}, nil
	}
	if path := mappingValue(node, "path"); path != nil {
		var p Path
		if err := path.Decode(&p.Path); err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		if p.Path == "" {
			return nil, errors.New("path must not be empty")
		}
		return p, nil
	}
	if adc := mappingValue(node, "adc"); adc != nil {
		var enabled bool
		if err := adc.Decode(&enabled); err != nil {
			return nil, fmt.Errorf("adc: %w", err)
		}
		if enabled {
			return ADC{}, nil
		}
	}

	var doc valuesDocument
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	projectID, err := decodeProjectID(&doc.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("projectId: %w", err)
	}
	return Values{
		Type:                    doc.Type,
		ProjectID:               projectID,
		PrivateKeyID:            doc.PrivateKeyID,
		PrivateKey:              doc.PrivateKey,
		ClientEmail:             doc.ClientEmail,
		ClientID:                doc.ClientID,
		AuthURI:                 doc.AuthURI,
		TokenURI:                doc.TokenURI,
		AuthProviderX509CertURL: doc.AuthProviderX509CertURL,
		ClientX509CertURL:       doc.ClientX509CertURL,
	}, nil
}

func decodeProjectID(node *yaml.Node) (ProjectID, error) {
	switch node.Kind {
	case 0:
		return SingleProjectID(""), nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return SingleProjectID(""), nil
		}
		return SingleProjectID(node.Value), nil
	case yaml.SequenceNode:
		ids := make([]string, 0, len(node.Content))
		if err := node.Decode(&ids); err != nil {
			return nil, err
		}
		return MultipleProjectID(ids), nil
	default:
		return nil, errors.New("must be a string or a list of strings")
	}
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
