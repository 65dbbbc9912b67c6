package monitoring

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Monitor tracks analysis outcomes and background job runs for the health
// endpoints. Health follows the last analysis: a critical failure marks the
// service unhealthy until the next success.
type Monitor struct {
	mu sync.RWMutex

	startedAt      time.Time
	lastRunSuccess bool
	lastRunTime    time.Time
	lastError      string

	analyses int64
	cached   int64
	degraded int64
	failures int64

	jobs map[string]JobStatus
}

// Status is the JSON shape served on /status.
type Status struct {
	Healthy   bool                 `json:"healthy"`
	Summary   string               `json:"summary"`
	Uptime    string               `json:"uptime"`
	Analyses  int64                `json:"analyses"`
	Cached    int64                `json:"cached"`
	Degraded  int64                `json:"degraded"`
	Failures  int64                `json:"failures"`
	LastRun   *time.Time           `json:"last_run,omitempty"`
	LastError string               `json:"last_error,omitempty"`
	Jobs      map[string]JobStatus `json:"jobs"`
}

type JobStatus struct {
	LastRun  time.Time `json:"last_run"`
	Duration string    `json:"duration"`
	Error    string    `json:"error,omitempty"`
}

func NewMonitor() *Monitor {
	return &Monitor{
		startedAt: time.Now(),
		jobs:      make(map[string]JobStatus),
	}
}

// RecordSuccess records a freshly computed analysis.
func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyses++
	m.markRun(true)
	slog.Info("analysis completed", "summary", summary, "duration", duration)
}

// RecordCached records a response served entirely from the store.
func (m *Monitor) RecordCached(summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyses++
	m.cached++
	m.markRun(true)
	slog.Debug("analysis served from cache", "summary", summary)
}

// RecordPartialFailure records an analysis that completed on the keyword
// fallback. Health is unchanged.
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyses++
	m.degraded++
	slog.Warn("analysis degraded", "error", err, "duration", duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	m.lastError = err.Error()
	m.markRun(false)
	slog.Error("analysis failed", "error", err, "duration", duration)
}

// RecordJob records a background job run. Job failures are reported on
// /status but do not affect health.
func (m *Monitor) RecordJob(name string, err error, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := JobStatus{LastRun: time.Now(), Duration: duration.String()}
	if err != nil {
		status.Error = err.Error()
		slog.Error("job failed", "job", name, "error", err, "duration", duration)
	} else {
		slog.Info("job completed", "job", name, "duration", duration)
	}
	m.jobs[name] = status
}

func (m *Monitor) markRun(success bool) {
	m.lastRunSuccess = success
	m.lastRunTime = time.Now()
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHealthy()
}

func (m *Monitor) isHealthy() bool {
	if m.lastRunTime.IsZero() {
		return true // nothing has failed yet
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusSummary()
}

func (m *Monitor) statusSummary() string {
	if m.lastRunTime.IsZero() {
		return "No analyses yet"
	}
	if m.lastRunSuccess {
		return fmt.Sprintf("Last analysis: %s", m.lastRunTime.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("Last analysis failed: %s", m.lastRunTime.Format("Jan 2 15:04"))
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		Healthy:   m.isHealthy(),
		Summary:   m.statusSummary(),
		Uptime:    time.Since(m.startedAt).Round(time.Second).String(),
		Analyses:  m.analyses,
		Cached:    m.cached,
		Degraded:  m.degraded,
		Failures:  m.failures,
		LastError: m.lastError,
		Jobs:      make(map[string]JobStatus, len(m.jobs)),
	}
	if !m.lastRunTime.IsZero() {
		t := m.lastRunTime
		s.LastRun = &t
	}
	for name, j := range m.jobs {
		s.Jobs[name] = j
	}
	return s
}
