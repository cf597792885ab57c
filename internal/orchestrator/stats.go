package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const latencySampleCap = 256

// PollStats tracks rolling statistics for one connector's polling loop
type PollStats struct {
	mu            sync.RWMutex
	Calls         int
	Errors        int
	Deduped       int
	Persisted     int
	LastSuccessAt time.Time
	latencies     []time.Duration
}

// NewPollStats creates a new stats tracker
func NewPollStats() *PollStats {
	return &PollStats{
		latencies: make([]time.Duration, 0, latencySampleCap),
	}
}

// RecordSuccess records a successful poll
func (s *PollStats) RecordSuccess(latency time.Duration, persisted, deduped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	s.Persisted += persisted
	s.Deduped += deduped
	s.LastSuccessAt = time.Now()
	s.pushLatency(latency)
}

// RecordError records a failed poll
func (s *PollStats) RecordError(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	s.Errors++
	s.pushLatency(latency)
}

func (s *PollStats) pushLatency(d time.Duration) {
	if len(s.latencies) >= latencySampleCap {
		copy(s.latencies, s.latencies[1:])
		s.latencies = s.latencies[:latencySampleCap-1]
	}
	s.latencies = append(s.latencies, d)
}

// SuccessRate returns the fraction of calls that succeeded
func (s *PollStats) SuccessRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Calls == 0 {
		return 0
	}
	return float64(s.Calls-s.Errors) / float64(s.Calls)
}

// AvgLatency returns the mean latency over the retained sample
func (s *PollStats) AvgLatency() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.latencies {
		total += d
	}
	return total / time.Duration(len(s.latencies))
}

// P95Latency returns the 95th percentile latency over the retained sample
func (s *PollStats) P95Latency() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (len(sorted) * 95) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Snapshot returns a point-in-time copy for status reporting
func (s *PollStats) Snapshot() PollStatsSnapshot {
	s.mu.RLock()
	calls, errors, deduped, persisted := s.Calls, s.Errors, s.Deduped, s.Persisted
	lastSuccess := s.LastSuccessAt
	s.mu.RUnlock()

	return PollStatsSnapshot{
		Calls:         calls,
		Errors:        errors,
		Deduped:       deduped,
		Persisted:     persisted,
		SuccessRate:   s.SuccessRate(),
		AvgLatency:    s.AvgLatency(),
		P95Latency:    s.P95Latency(),
		LastSuccessAt: lastSuccess,
	}
}

// PollStatsSnapshot is an immutable view of a connector's rolling stats
type PollStatsSnapshot struct {
	Calls         int           `json:"calls"`
	Errors        int           `json:"errors"`
	Deduped       int           `json:"deduped"`
	Persisted     int           `json:"persisted"`
	SuccessRate   float64       `json:"success_rate"`
	AvgLatency    time.Duration `json:"avg_latency"`
	P95Latency    time.Duration `json:"p95_latency"`
	LastSuccessAt time.Time     `json:"last_success_at"`
}

// String returns a formatted representation for logs
func (s PollStatsSnapshot) String() string {
	return fmt.Sprintf(
		"PollStats{Calls=%d, Errors=%d, SuccessRate=%.1f%%, Persisted=%d, Deduped=%d, Avg=%v, P95=%v}",
		s.Calls, s.Errors, s.SuccessRate*100, s.Persisted, s.Deduped, s.AvgLatency, s.P95Latency,
	)
}
