// Package meter tracks process-lifetime request metrics: monotonic counters
// plus a bounded rolling window of request latencies.
package meter

import (
	"math"
	"sync"
)

// DefaultWindowSize is how many of the most recent latency samples are kept
// for the rolling average.
const DefaultWindowSize = 1000

// Snapshot is a consistent view of the meter at one point in time.
type Snapshot struct {
	RequestsTotal  int64   `json:"requests_total"`
	FlaggedTotal   int64   `json:"flagged_total"`
	CacheHitsTotal int64   `json:"cache_hits_total"`
	LatencyMSAvg   float64 `json:"latency_ms_avg"`
}

// Meter accumulates counters and latency samples from concurrent requests.
// All methods are safe for concurrent use.
type Meter struct {
	mu             sync.Mutex
	requestsTotal  int64
	flaggedTotal   int64
	cacheHitsTotal int64
	latencies      []float64
	windowSize     int
}

// New returns a Meter with the default window size.
func New() *Meter {
	return NewWithWindow(DefaultWindowSize)
}

// NewWithWindow returns a Meter keeping at most windowSize latency samples.
func NewWithWindow(windowSize int) *Meter {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Meter{windowSize: windowSize}
}

// Record registers one finished request. The latency sample is appended to
// the rolling window, evicting the oldest sample when the window is full.
func (m *Meter) Record(cacheHit, flagged bool, latencyMS float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestsTotal++
	if cacheHit {
		m.cacheHitsTotal++
	}
	if flagged {
		m.flaggedTotal++
	}

	m.latencies = append(m.latencies, latencyMS)
	if len(m.latencies) > m.windowSize {
		m.latencies = m.latencies[len(m.latencies)-m.windowSize:]
	}
}

// Snapshot returns the current counters and the window's average latency,
// rounded to two decimals. An empty window averages to 0.0.
func (m *Meter) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg float64
	if n := len(m.latencies); n > 0 {
		var sum float64
		for _, v := range m.latencies {
			sum += v
		}
		avg = math.Round(sum/float64(n)*100) / 100
	}

	return Snapshot{
		RequestsTotal:  m.requestsTotal,
		FlaggedTotal:   m.flaggedTotal,
		CacheHitsTotal: m.cacheHitsTotal,
		LatencyMSAvg:   avg,
	}
}
