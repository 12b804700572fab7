// Package profiler tracks how long gate operations take.
package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
)

// Operation names recorded by the controller.
const (
	OpDetect     = "detect"
	OpCheckImage = "check_image"
	OpCheckVideo = "check_video"
)

// DefaultMaxSamples bounds the window the mean is computed over.
const DefaultMaxSamples = 600

// timeTracker tracks timing statistics of one operation.
type timeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// OperationStats summarizes one operation. Durations are in milliseconds.
type OperationStats struct {
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// Snapshot is a point in time view of the profiler.
type Snapshot struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Goroutines    int              `json:"goroutines"`
	HeapAlloc     uint64           `json:"heap_alloc"`
	Operations    []OperationStats `json:"operations"`
}

// Profiler records operation timings. A nil *Profiler discards everything,
// so callers never need to check for one.
type Profiler struct {
	mu         sync.Mutex
	startTime  time.Time
	maxSamples int
	operations map[string]*timeTracker
}

// New creates a profiler that averages over the last maxSamples runs of
// each operation. Zero selects DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		startTime:  time.Now(),
		maxSamples: maxSamples,
		operations: make(map[string]*timeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one completed run of an operation.
func (p *Profiler) Record(name string, duration time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operations[name]
	if !exists {
		tracker = &timeTracker{
			minTime: duration,
			maxTime: duration,
		}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Snapshot returns the current statistics, operations sorted by name.
func (p *Profiler) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap := Snapshot{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		Operations: []OperationStats{},
	}
	if p == nil {
		return snap
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snap.UptimeSeconds = time.Since(p.startTime).Seconds()
	for name, tracker := range p.operations {
		snap.Operations = append(snap.Operations, OperationStats{
			Name:   name,
			Count:  tracker.count,
			MeanMS: ms(tracker.totalTime) / float64(len(tracker.durations)),
			MinMS:  ms(tracker.minTime),
			MaxMS:  ms(tracker.maxTime),
		})
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Name < snap.Operations[j].Name
	})
	return snap
}

// LogReport writes one line per operation.
func (p *Profiler) LogReport(log logs.Log) {
	for _, op := range p.Snapshot().Operations {
		log.Infof("%v: avg=%.1fms, min=%.1fms, max=%.1fms, count=%d", op.Name, op.MeanMS, op.MinMS, op.MaxMS, op.Count)
	}
}
