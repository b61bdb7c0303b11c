package scheduler

import (
	"sync"
	"time"

	"github.com/steve-cardenas/snagent/internal/pipeline"
)

// AccountStatus is the outcome of the latest runs for one account.
type AccountStatus struct {
	Healthy             bool
	LastRun             time.Time
	LastSuccess         time.Time
	LastError           error
	ConsecutiveFailures int

	// Counts from the latest run that produced them.
	Posts    int
	Stories  int
	Findings int
}

// Health tracks the latest run of every scheduled account.
type Health struct {
	mu       sync.RWMutex
	accounts map[string]*AccountStatus
	now      func() time.Time
}

// NewHealth creates a new health tracker.
func NewHealth() *Health {
	return &Health{
		accounts: make(map[string]*AccountStatus),
		now:      time.Now,
	}
}

// RecordRun stores the outcome of one pipeline run. A non-nil err marks the
// account unhealthy; counts from res are kept whenever res carries them.
func (h *Health) RecordRun(username string, res *pipeline.Result, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.accounts[username]
	if !ok {
		status = &AccountStatus{}
		h.accounts[username] = status
	}

	at := h.now()
	status.LastRun = at
	status.LastError = err
	status.Healthy = err == nil
	if err == nil {
		status.LastSuccess = at
		status.ConsecutiveFailures = 0
	} else {
		status.ConsecutiveFailures++
	}

	if res == nil {
		return
	}
	if res.Summary != nil {
		status.Posts = len(res.Summary.Posts)
		status.Stories = len(res.Summary.Stories)
	}
	if res.Report != nil {
		status.Findings = len(res.Report.ContentLevel)
	}
}

// Status returns a copy of the status of username.
func (h *Health) Status(username string) (AccountStatus, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, ok := h.accounts[username]
	if !ok {
		return AccountStatus{}, false
	}
	return *status, true
}

// Snapshot returns a copy of every account status.
func (h *Health) Snapshot() map[string]AccountStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]AccountStatus, len(h.accounts))
	for name, status := range h.accounts {
		out[name] = *status
	}
	return out
}

// Healthy reports whether the latest run of every account succeeded.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.accounts {
		if !status.Healthy {
			return false
		}
	}
	return true
}
