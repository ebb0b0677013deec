package ingest

import (
	"context"
	"sync"
)

// JobManager tracks cancel functions for in-flight ingest runs so the API can
// cancel them by run ID.
type JobManager struct {
	mu      sync.RWMutex
	cancels map[string]context.CancelFunc
}

func NewJobManager() *JobManager {
	return &JobManager{
		cancels: make(map[string]context.CancelFunc),
	}
}

// Register stores a cancel function for a run. Called when a run starts.
func (jm *JobManager) Register(runID string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[runID] = cancel
}

// Cancel invokes the cancel function for a run if it exists. Returns true if
// the run was found and cancelled.
func (jm *JobManager) Cancel(runID string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if cancel, ok := jm.cancels[runID]; ok {
		cancel()
		delete(jm.cancels, runID)
		return true
	}
	return false
}

// Unregister removes a run's cancel function once it completes.
func (jm *JobManager) Unregister(runID string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.cancels, runID)
}

// IsRunning checks whether a run is currently registered.
func (jm *JobManager) IsRunning(runID string) bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	_, ok := jm.cancels[runID]
	return ok
}
