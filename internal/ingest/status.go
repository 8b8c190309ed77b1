package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Run states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateDone    = "done"
	StateError   = "error"
)

// Status is the persisted record of the latest ingestion run.
type Status struct {
	Status        string     `json:"status"`
	PagesScraped  int        `json:"pages_scraped"`
	ChunksIndexed int        `json:"chunks_indexed"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	ErrorMessage  *string    `json:"error_message"`
}

// StatusStore keeps Status in a JSON file.
type StatusStore struct {
	mu   sync.Mutex
	path string
}

func NewStatusStore(path string) *StatusStore {
	return &StatusStore{path: path}
}

// Load returns the stored status. A missing or unreadable file reads as idle.
func (s *StatusStore) Load() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Status{Status: StateIdle}
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil || status.Status == "" {
		return Status{Status: StateIdle}
	}
	return status
}

// Save replaces the stored status.
func (s *StatusStore) Save(status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename status: %w", err)
	}
	return nil
}
