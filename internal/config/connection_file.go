package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nholik/bq-sentinel/internal/connection"
)

// ConnectionFile is a parsed connection file and the fingerprint of its bytes.
type ConnectionFile struct {
	Connection  connection.BigQueryConnection
	Fingerprint string
}

// connectionDocument is the YAML layout:
//
//	serviceConnection:
//	  config:
//	    type: BigQuery
//	    credentials: {gcpConfig: {...}}
//
// A bare config at the top level is accepted too.
type connectionDocument struct {
	ServiceConnection *struct {
		Config connection.BigQueryConnection `yaml:"config"`
	} `yaml:"serviceConnection"`
}

// LoadConnectionFile reads and validates a BigQuery connection file.
func LoadConnectionFile(path string) (ConnectionFile, error) {
	if path == "" {
		return ConnectionFile{}, errors.New("connection file path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ConnectionFile{}, fmt.Errorf("read connection file: %w", err)
	}

	conn, err := ParseConnection(data)
	if err != nil {
		return ConnectionFile{}, err
	}

	fingerprint, err := Fingerprint(data)
	if err != nil {
		return ConnectionFile{}, err
	}

	return ConnectionFile{Connection: conn, Fingerprint: fingerprint}, nil
}

// ParseConnection decodes a connection document and applies defaults.
func ParseConnection(data []byte) (connection.BigQueryConnection, error) {
	var doc connectionDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return connection.BigQueryConnection{}, fmt.Errorf("parse connection file: %w", err)
	}

	var conn connection.BigQueryConnection
	if doc.ServiceConnection != nil {
		conn = doc.ServiceConnection.Config
	} else if err := yaml.Unmarshal(data, &conn); err != nil {
		return connection.BigQueryConnection{}, fmt.Errorf("parse connection file: %w", err)
	}

	conn = conn.WithDefaults()
	if err := validateConnection(conn); err != nil {
		return connection.BigQueryConnection{}, err
	}
	return conn, nil
}

func validateConnection(conn connection.BigQueryConnection) error {
	if conn.Type != connection.DefaultServiceType {
		return fmt.Errorf("unsupported connection type %q", conn.Type)
	}
	for i, id := range conn.TaxonomyProjectIDs {
		if id == "" {
			return fmt.Errorf("taxonomyProjectID %d: must not be empty", i)
		}
	}
	return nil
}

// Fingerprint computes a SHA-256 hash for the given connection file bytes.
func Fingerprint(body []byte) (string, error) {
	if len(body) == 0 {
		return "", errors.New("connection file is empty")
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
