package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const stateFileMode = 0o600

// FileStore persists state as JSON on disk.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore returns a JSON-backed state store.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("state_path", path).Logger(),
	}
}

// Load reads state from disk. A missing, corrupt or newer-version file
// yields an empty state with a warning so the next Save replaces it.
func (s *FileStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Msg("state file missing, starting fresh")
		return Empty(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn().Err(err).Msg("state file corrupt, starting fresh")
		return Empty(), nil
	}

	switch {
	case loaded.Version > SchemaVersion:
		s.logger.Warn().
			Int("version", loaded.Version).
			Int("supported_version", SchemaVersion).
			Msg("state file written by a newer version, starting fresh")
		return Empty(), nil
	case loaded.Version == 0:
		// unversioned files share the version 1 layout
		loaded.Version = SchemaVersion
	}
	if loaded.Services == nil {
		loaded.Services = map[string]Snapshot{}
	}
	return loaded, nil
}

// Save writes state to a temp file in the target directory and renames it
// into place.
func (s *FileStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.Version = SchemaVersion
	if st.Services == nil {
		st.Services = map[string]Snapshot{}
	}

	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := writeAtomic(dir, s.path, payload); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	s.logger.Debug().Int("services", len(st.Services)).Msg("state saved")
	return nil
}

func writeAtomic(dir, path string, payload []byte) error {
	tempFile, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	fail := func(err error) error {
		_ = tempFile.Close()
		_ = os.Remove(tempName)
		return err
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		return fail(err)
	}
	if _, err := tempFile.Write(payload); err != nil {
		return fail(err)
	}
	if err := tempFile.Sync(); err != nil {
		return fail(err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, path); err != nil {
		_ = os.Remove(tempName)
		return err
	}

	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}
	return nil
}
