// Package runlog persists sync run summaries as a local JSON history.
// The log is informational; losing it never affects a run.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mytua/wcsync/pkg/models"
)

const (
	LogVersion     = "1.0"
	DefaultLogFile = "output/.wcsync-runs.json"

	// maxRuns bounds the file; older runs roll off the front.
	maxRuns = 50
)

// LogFile is the on-disk structure
type LogFile struct {
	Version     string              `json:"version"`
	Runs        []models.RunSummary `json:"runs"`
	LastUpdated time.Time           `json:"last_updated"`
}

// Store manages run history persistence
type Store struct {
	mu       sync.RWMutex
	filePath string
	log      *LogFile
}

// NewStore creates a run log store
func NewStore(filePath string) *Store {
	if filePath == "" {
		filePath = DefaultLogFile
	}

	return &Store{
		filePath: filePath,
		log: &LogFile{
			Version: LogVersion,
			Runs:    []models.RunSummary{},
		},
	}
}

// Load reads the history from disk
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.log = &LogFile{
				Version: LogVersion,
				Runs:    []models.RunSummary{},
			}
			return nil
		}
		return err
	}

	var log LogFile
	if err := json.Unmarshal(data, &log); err != nil {
		return fmt.Errorf("failed to parse run log: %w", err)
	}
	if log.Version == "" {
		log.Version = LogVersion
	}
	s.log = &log

	return nil
}

// Append records a completed run and saves the file
func (s *Store) Append(summary models.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Runs = append(s.log.Runs, summary)
	if len(s.log.Runs) > maxRuns {
		s.log.Runs = s.log.Runs[len(s.log.Runs)-maxRuns:]
	}

	return s.saveInternal()
}

// saveInternal saves without acquiring lock (for internal use)
func (s *Store) saveInternal() error {
	s.log.LastUpdated = time.Now()

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.log, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// Runs returns all recorded runs, oldest first
func (s *Store) Runs() []models.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]models.RunSummary, len(s.log.Runs))
	copy(runs, s.log.Runs)
	return runs
}

// RecentRuns returns the last n runs
func (s *Store) RecentRuns(n int) []models.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n >= len(s.log.Runs) {
		runs := make([]models.RunSummary, len(s.log.Runs))
		copy(runs, s.log.Runs)
		return runs
	}

	start := len(s.log.Runs) - n
	runs := make([]models.RunSummary, n)
	copy(runs, s.log.Runs[start:])
	return runs
}

// Count returns the number of recorded runs
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log.Runs)
}
