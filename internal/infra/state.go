package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// StateFile persists the daemon run state as JSON with atomic writes, so
// status readers never see a half-written snapshot.
type StateFile struct {
	path string
}

// NewStateFile creates a state file at the given path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Path returns the state file location.
func (s *StateFile) Path() string {
	return s.path
}

// Write replaces the snapshot atomically (write temp + rename).
func (s *StateFile) Write(state domain.RunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Temp file is unique per process to avoid races with a stale daemon.
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace run state: %w", err)
	}
	return nil
}

// Read returns the last snapshot, or nil when none has been written.
func (s *StateFile) Read() (*domain.RunState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state: %w", err)
	}
	return &state, nil
}

// Clear removes the snapshot file.
func (s *StateFile) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
