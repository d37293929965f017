// Package metrics collects in-process counters about patch applications.
package metrics

import (
	"sync"
	"time"

	"github.com/asynkron/justpaste/pkg/linepatch"
)

// Recorder receives one observation per patch application.
type Recorder interface {
	// RecordApply records a completed application with its duration and report.
	RecordApply(duration time.Duration, report linepatch.Report)
	// RecordRejected records a request that never reached the patch engine.
	RecordRejected(reason string)
	// Snapshot returns the current counters.
	Snapshot() Snapshot
	// Reset clears all counters.
	Reset()
}

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	Applies    int64                       `json:"applies"`
	Operations int64                       `json:"operations"`
	Outcomes   map[linepatch.Outcome]int64 `json:"outcomes"`
	Rejected   map[string]int64            `json:"rejected"`
	TotalTime  time.Duration               `json:"total_time_ns"`
	MinTime    time.Duration               `json:"min_time_ns"`
	MaxTime    time.Duration               `json:"max_time_ns"`
	LastApply  time.Time                   `json:"last_apply"`
}

// Nop discards all observations.
type Nop struct{}

func (Nop) RecordApply(time.Duration, linepatch.Report) {}
func (Nop) RecordRejected(string)                       {}
func (Nop) Snapshot() Snapshot                          { return Snapshot{} }
func (Nop) Reset()                                      {}

// InMemory is a thread-safe Recorder.
type InMemory struct {
	mu       sync.Mutex
	applies  int64
	ops      int64
	outcomes map[linepatch.Outcome]int64
	rejected map[string]int64
	total    time.Duration
	min      time.Duration
	max      time.Duration
	last     time.Time
	now      func() time.Time
}

// NewInMemory creates an empty InMemory recorder.
func NewInMemory() *InMemory {
	return &InMemory{
		outcomes: make(map[linepatch.Outcome]int64),
		rejected: make(map[string]int64),
		now:      time.Now,
	}
}

func (m *InMemory) RecordApply(duration time.Duration, report linepatch.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applies++
	m.ops += int64(len(report.Steps))
	for _, step := range report.Steps {
		m.outcomes[step.Outcome]++
	}
	m.total += duration
	if m.applies == 1 || duration < m.min {
		m.min = duration
	}
	if duration > m.max {
		m.max = duration
	}
	m.last = m.now()
}

func (m *InMemory) RecordRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *InMemory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Applies:    m.applies,
		Operations: m.ops,
		Outcomes:   make(map[linepatch.Outcome]int64, len(m.outcomes)),
		Rejected:   make(map[string]int64, len(m.rejected)),
		TotalTime:  m.total,
		MinTime:    m.min,
		MaxTime:    m.max,
		LastApply:  m.last,
	}
	for k, v := range m.outcomes {
		snap.Outcomes[k] = v
	}
	for k, v := range m.rejected {
		snap.Rejected[k] = v
	}
	return snap
}

func (m *InMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applies = 0
	m.ops = 0
	m.outcomes = make(map[linepatch.Outcome]int64)
	m.rejected = make(map[string]int64)
	m.total = 0
	m.min = 0
	m.max = 0
	m.last = time.Time{}
}
