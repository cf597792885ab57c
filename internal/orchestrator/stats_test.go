package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollStatsSuccessRate(t *testing.T) {
	s := NewPollStats()
	assert.Zero(t, s.SuccessRate())

	s.RecordSuccess(time.Millisecond, 5, 0)
	s.RecordSuccess(time.Millisecond, 3, 1)
	s.RecordError(time.Millisecond)
	s.RecordSuccess(time.Millisecond, 0, 2)

	assert.InDelta(t, 0.75, s.SuccessRate(), 1e-9)

	snap := s.Snapshot()
	assert.Equal(t, 4, snap.Calls)
	assert.Equal(t, 1, snap.Errors)
	assert.Equal(t, 8, snap.Persisted)
	assert.Equal(t, 3, snap.Deduped)
	assert.False(t, snap.LastSuccessAt.IsZero())
}

func TestPollStatsLatencyPercentiles(t *testing.T) {
	s := NewPollStats()
	assert.Zero(t, s.AvgLatency())
	assert.Zero(t, s.P95Latency())

	// 1ms..100ms in order
	for i := 1; i <= 100; i++ {
		s.RecordSuccess(time.Duration(i)*time.Millisecond, 1, 0)
	}

	assert.InDelta(t, float64(50500*time.Microsecond), float64(s.AvgLatency()), float64(time.Millisecond))
	assert.InDelta(t, float64(96*time.Millisecond), float64(s.P95Latency()), float64(time.Millisecond))
}

func TestPollStatsLatencyWindowBounded(t *testing.T) {
	s := NewPollStats()

	// Flood with slow samples, then overwrite the window with fast ones
	for i := 0; i < latencySampleCap; i++ {
		s.RecordError(time.Second)
	}
	for i := 0; i < latencySampleCap; i++ {
		s.RecordSuccess(time.Millisecond, 0, 0)
	}

	assert.Equal(t, time.Millisecond, s.AvgLatency(), "old samples age out of the ring")
	assert.Equal(t, time.Millisecond, s.P95Latency())
}

func TestPollStatsSnapshotString(t *testing.T) {
	s := NewPollStats()
	s.RecordSuccess(10*time.Millisecond, 2, 1)

	out := s.Snapshot().String()
	assert.Contains(t, out, "Calls=1")
	assert.Contains(t, out, "SuccessRate=100.0%")
	assert.Contains(t, out, "Persisted=2")
	assert.Contains(t, out, "Deduped=1")
}
