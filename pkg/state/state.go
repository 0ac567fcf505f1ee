package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/04arvind/newla/pkg/logger"
)

// State is the persistent per-workspace run state: enough to answer "what
// happened last" without replaying the audit log.
type State struct {
	// LastRunID is the id of the most recent run against this workspace.
	LastRunID string `json:"last_run_id,omitempty"`

	// LastStatus is the final status of that run.
	LastStatus string `json:"last_status,omitempty"`

	// LastPrompt is the request that started it.
	LastPrompt string `json:"last_prompt,omitempty"`

	// Timestamp is the last time this state was updated.
	Timestamp time.Time `json:"timestamp"`
}

// Manager manages persistent state with atomic saves.
type Manager struct {
	workspace string
	state     *State
	mu        sync.RWMutex
	stateFile string
}

var (
	stateReadFile         = os.ReadFile
	stateBootstrapTimeout = 750 * time.Millisecond
)

// NewManager creates a state manager for the given workspace.
func NewManager(workspace string) *Manager {
	stateDir := filepath.Join(workspace, ".newla")
	stateFile := filepath.Join(stateDir, "state.json")
	oldStateFile := filepath.Join(workspace, "state.json")

	os.MkdirAll(stateDir, 0755)

	sm := &Manager{
		workspace: workspace,
		stateFile: stateFile,
		state:     &State{},
	}

	loadedState, loadedFromLegacy, err := loadBootstrapWithTimeout(stateFile, oldStateFile, stateBootstrapTimeout)
	if err != nil {
		logger.WarnCF("state", "Bootstrap skipped", map[string]interface{}{
			"workspace": workspace,
			"error":     err.Error(),
		})
	} else if loadedState != nil {
		sm.state = loadedState
		if loadedFromLegacy {
			// Persisted in the new location on next write.
			logger.InfoCF("state", "Loaded legacy state", map[string]interface{}{
				"path": oldStateFile,
			})
		}
	}

	return sm
}

// RecordRun atomically updates the last-run fields and saves the state.
func (sm *Manager) RecordRun(runID, status, prompt string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.state.LastRunID = runID
	sm.state.LastStatus = status
	sm.state.LastPrompt = prompt
	sm.state.Timestamp = time.Now()

	if err := sm.saveAtomic(); err != nil {
		return fmt.Errorf("failed to save state atomically: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (sm *Manager) Snapshot() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return *sm.state
}

func (sm *Manager) LastRunID() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.LastRunID
}

func (sm *Manager) LastStatus() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.LastStatus
}

// saveAtomic writes to a temp file and renames it over the target so the
// state file is never left corrupted. Must be called with the lock held.
func (sm *Manager) saveAtomic() error {
	tempFile := sm.stateFile + ".tmp"

	data, err := json.MarshalIndent(sm.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, sm.stateFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func loadBootstrapWithTimeout(stateFile, oldStateFile string, timeout time.Duration) (*State, bool, error) {
	if timeout <= 0 {
		return loadBootstrap(stateFile, oldStateFile)
	}

	type result struct {
		state      *State
		fromLegacy bool
		err        error
	}

	done := make(chan result, 1)
	go func() {
		st, legacy, err := loadBootstrap(stateFile, oldStateFile)
		done <- result{
			state:      st,
			fromLegacy: legacy,
			err:        err,
		}
	}()

	select {
	case out := <-done:
		return out.state, out.fromLegacy, out.err
	case <-time.After(timeout):
		return nil, false, fmt.Errorf("state load timed out")
	}
}

func loadBootstrap(stateFile, oldStateFile string) (*State, bool, error) {
	if st, err := loadStateFromPath(stateFile); err != nil {
		return nil, false, err
	} else if st != nil {
		return st, false, nil
	}

	if st, err := loadStateFromPath(oldStateFile); err != nil {
		return nil, false, err
	} else if st != nil {
		return st, true, nil
	}

	return nil, false, nil
}

func loadStateFromPath(path string) (*State, error) {
	data, err := stateReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state %s: %w", path, err)
	}
	return &st, nil
}
