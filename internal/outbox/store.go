package outbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/pipeline"
)

// FailureRecord is a board that could not be delivered, with the reason.
type FailureRecord struct {
	Board *pipeline.Board `json:"board"`
	Error string          `json:"error"`
}

// Store persists failure records as a JSON array.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the failure file location.
func (s *Store) Path() string { return s.path }

// Load returns the persisted records. A missing or unreadable file is treated
// as empty.
func (s *Store) Load() []FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("failed to read failure file, starting empty")
		}
		return nil
	}
	var records []FailureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("failure file is not valid json, starting empty")
		return nil
	}
	return records
}

// Save replaces the failure file with records. The file is written to a
// temporary sibling, synced and renamed, so readers only ever see a complete
// array.
func (s *Store) Save(records []FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records == nil {
		records = []FailureRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode failure records")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp failure file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp failure file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp failure file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp failure file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replace %s", s.path)
	}
	return nil
}
