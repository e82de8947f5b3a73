// Package telemetry tracks feature usage across the analytics subsystems.
// Recording is best-effort: a full buffer or a concurrent burst may drop
// detail, but Record never fails and never slows the primary operation
// beyond a counter update.
package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// OperationMetric captures a single analytics operation invocation.
type OperationMetric struct {
	Timestamp  time.Time     `json:"timestamp"`
	Operation  string        `json:"operation"`
	UserID     string        `json:"user_id"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration"`
}

type operationStats struct {
	Operation     string
	TotalRequests int64
	TotalErrors   int64
	TotalDuration int64 // nanoseconds
	StatusCounts  map[int]int64
	mu            sync.Mutex
}

type userStats struct {
	UserID        string
	TotalRequests int64
	TotalErrors   int64
	LastRequestAt time.Time
	mu            sync.Mutex
}

// OperationSummary is the aggregated view of one analytics operation.
type OperationSummary struct {
	Operation       string        `json:"operation"`
	TotalRequests   int64         `json:"total_requests"`
	ErrorRate       float64       `json:"error_rate"`
	AvgLatency      time.Duration `json:"avg_latency"`
	StatusBreakdown map[int]int64 `json:"status_breakdown"`
}

// UserSummary is the aggregated view of one caller.
type UserSummary struct {
	UserID        string    `json:"user_id"`
	TotalRequests int64     `json:"total_requests"`
	ErrorRate     float64   `json:"error_rate"`
	LastSeen      time.Time `json:"last_seen"`
}

// Overview is the top-level usage summary served by the admin endpoints.
type Overview struct {
	TotalRequests int64               `json:"total_requests"`
	TotalErrors   int64               `json:"total_errors"`
	ErrorRate     float64             `json:"error_rate"`
	AvgLatency    time.Duration       `json:"avg_latency"`
	UniqueUsers   int                 `json:"unique_users"`
	Operations    []*OperationSummary `json:"operations"`
}

// Tracker aggregates operation metrics in memory: an append-only ring buffer
// of recent invocations plus per-operation and per-user counters.
type Tracker struct {
	metrics    []*OperationMetric
	maxMetrics int
	writePos   int
	full       bool

	operationCounters map[string]*operationStats
	userCounters      map[string]*userStats
	mu                sync.RWMutex

	totalRequests int64
	totalErrors   int64
	totalDuration int64 // nanoseconds
}

// NewTracker creates a Tracker with the given ring buffer capacity.
func NewTracker(maxMetrics int) *Tracker {
	if maxMetrics <= 0 {
		maxMetrics = 10000
	}
	return &Tracker{
		metrics:           make([]*OperationMetric, 0, maxMetrics),
		maxMetrics:        maxMetrics,
		operationCounters: make(map[string]*operationStats),
		userCounters:      make(map[string]*userStats),
	}
}

// Record appends a metric to the ring buffer and updates the counters.
func (t *Tracker) Record(metric *OperationMetric) {
	isError := metric.StatusCode >= 400

	atomic.AddInt64(&t.totalRequests, 1)
	if isError {
		atomic.AddInt64(&t.totalErrors, 1)
	}
	atomic.AddInt64(&t.totalDuration, int64(metric.Duration))

	t.mu.Lock()

	if t.full {
		t.metrics[t.writePos] = metric
	} else if len(t.metrics) < t.maxMetrics {
		t.metrics = append(t.metrics, metric)
	}
	t.writePos++
	if t.writePos >= t.maxMetrics {
		t.writePos = 0
		t.full = true
	}

	op, ok := t.operationCounters[metric.Operation]
	if !ok {
		op = &operationStats{Operation: metric.Operation, StatusCounts: make(map[int]int64)}
		t.operationCounters[metric.Operation] = op
	}

	var us *userStats
	if metric.UserID != "" {
		us, ok = t.userCounters[metric.UserID]
		if !ok {
			us = &userStats{UserID: metric.UserID}
			t.userCounters[metric.UserID] = us
		}
	}

	t.mu.Unlock()

	// Per-operation mutex to reduce contention.
	op.mu.Lock()
	op.TotalRequests++
	if isError {
		op.TotalErrors++
	}
	op.TotalDuration += int64(metric.Duration)
	op.StatusCounts[metric.StatusCode]++
	op.mu.Unlock()

	if us != nil {
		us.mu.Lock()
		us.TotalRequests++
		if isError {
			us.TotalErrors++
		}
		us.LastRequestAt = metric.Timestamp
		us.mu.Unlock()
	}
}

// GetOperationStats returns aggregated stats for one operation, or nil when
// the operation has never been recorded.
func (t *Tracker) GetOperationStats(operation string) *OperationSummary {
	t.mu.RLock()
	op, ok := t.operationCounters[operation]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	return buildOperationSummary(op)
}

// GetUserStats returns aggregated stats for one caller, or nil when unseen.
func (t *Tracker) GetUserStats(userID string) *UserSummary {
	t.mu.RLock()
	us, ok := t.userCounters[userID]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	return buildUserSummary(us)
}

// GetOverview aggregates all counters into a single summary with operations
// ordered by request volume.
func (t *Tracker) GetOverview() *Overview {
	total := atomic.LoadInt64(&t.totalRequests)
	errs := atomic.LoadInt64(&t.totalErrors)
	dur := atomic.LoadInt64(&t.totalDuration)

	o := &Overview{
		TotalRequests: total,
		TotalErrors:   errs,
	}
	if total > 0 {
		o.ErrorRate = float64(errs) / float64(total)
		o.AvgLatency = time.Duration(dur / total)
	}

	t.mu.RLock()
	o.UniqueUsers = len(t.userCounters)
	ops := make([]*operationStats, 0, len(t.operationCounters))
	for _, op := range t.operationCounters {
		ops = append(ops, op)
	}
	t.mu.RUnlock()

	for _, op := range ops {
		o.Operations = append(o.Operations, buildOperationSummary(op))
	}
	sort.Slice(o.Operations, func(i, j int) bool {
		return o.Operations[i].TotalRequests > o.Operations[j].TotalRequests
	})
	return o
}

// Recent returns up to n of the most recently recorded metrics, newest first.
func (t *Tracker) Recent(n int) []*OperationMetric {
	t.mu.RLock()
	defer t.mu.RUnlock()

	size := len(t.metrics)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]*OperationMetric, 0, n)
	pos := t.writePos - 1
	for i := 0; i < n; i++ {
		if pos < 0 {
			pos = size - 1
		}
		out = append(out, t.metrics[pos])
		pos--
	}
	return out
}

func buildOperationSummary(op *operationStats) *OperationSummary {
	op.mu.Lock()
	defer op.mu.Unlock()

	s := &OperationSummary{
		Operation:       op.Operation,
		TotalRequests:   op.TotalRequests,
		StatusBreakdown: make(map[int]int64, len(op.StatusCounts)),
	}
	for code, count := range op.StatusCounts {
		s.StatusBreakdown[code] = count
	}
	if op.TotalRequests > 0 {
		s.ErrorRate = float64(op.TotalErrors) / float64(op.TotalRequests)
		s.AvgLatency = time.Duration(op.TotalDuration / op.TotalRequests)
	}
	return s
}

func buildUserSummary(us *userStats) *UserSummary {
	us.mu.Lock()
	defer us.mu.Unlock()

	s := &UserSummary{
		UserID:        us.UserID,
		TotalRequests: us.TotalRequests,
		LastSeen:      us.LastRequestAt,
	}
	if us.TotalRequests > 0 {
		s.ErrorRate = float64(us.TotalErrors) / float64(us.TotalRequests)
	}
	return s
}
