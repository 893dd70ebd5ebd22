package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/logger"
)

// Store persists and loads the export checkpoint
type Store interface {
	// Load returns the persisted cursor, or a zero-value cursor if no
	// checkpoint exists yet
	Load() (*Cursor, error)

	// Save persists the cursor. It must be atomic from the caller's
	// perspective: a crash mid-save leaves the prior valid checkpoint
	// intact rather than a corrupted one.
	Save(*Cursor) error
}

// FileStore persists the cursor as a JSON checkpoint file
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a file-backed cursor store at the given path
func NewFileStore(path string, log logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	return &FileStore{
		path:   path,
		logger: log,
	}, nil
}

// Load loads the checkpoint. A missing file is not an error: the
// export simply starts from the beginning.
func (s *FileStore) Load() (*Cursor, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Cursor{}, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cur Cursor
	if err := json.NewDecoder(file).Decode(&cur); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	s.logger.DebugWithFields("checkpoint loaded", map[string]interface{}{
		"cursor": cur.String(),
		"done":   cur.Done,
	})

	return &cur, nil
}

// Save saves the checkpoint to disk atomically via a temporary file
// and rename, so a crash mid-write never leaves a corrupt checkpoint.
func (s *FileStore) Save(cur *Cursor) error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cur); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	s.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"cursor": cur.String(),
		"done":   cur.Done,
	})

	return nil
}

// Exists checks if a checkpoint file exists
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Delete removes the checkpoint file. Only a deliberately fresh export
// discards the checkpoint; completed runs keep it so reruns are no-ops.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	s.logger.Info("checkpoint deleted")
	return nil
}

// Path returns the checkpoint file path
func (s *FileStore) Path() string {
	return s.path
}
