package meter

import (
	"sync"
	"testing"
)

func TestRecordIncrementsCounters(t *testing.T) {
	m := New()

	m.Record(false, false, 10)
	m.Record(true, false, 20)
	m.Record(true, true, 30)

	s := m.Snapshot()
	if s.RequestsTotal != 3 {
		t.Errorf("RequestsTotal = %d, want 3", s.RequestsTotal)
	}
	if s.CacheHitsTotal != 2 {
		t.Errorf("CacheHitsTotal = %d, want 2", s.CacheHitsTotal)
	}
	if s.FlaggedTotal != 1 {
		t.Errorf("FlaggedTotal = %d, want 1", s.FlaggedTotal)
	}
	if s.LatencyMSAvg != 20 {
		t.Errorf("LatencyMSAvg = %v, want 20", s.LatencyMSAvg)
	}
}

func TestEmptyWindowAveragesZero(t *testing.T) {
	s := New().Snapshot()
	if s.LatencyMSAvg != 0.0 {
		t.Errorf("LatencyMSAvg = %v, want 0.0", s.LatencyMSAvg)
	}
}

func TestAverageRounding(t *testing.T) {
	m := New()
	m.Record(false, false, 1)
	m.Record(false, false, 2)
	m.Record(false, false, 2)
	// (1+2+2)/3 = 1.666... -> 1.67
	if got := m.Snapshot().LatencyMSAvg; got != 1.67 {
		t.Errorf("LatencyMSAvg = %v, want 1.67", got)
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	m := NewWithWindow(3)
	m.Record(false, false, 100)
	m.Record(false, false, 10)
	m.Record(false, false, 20)
	m.Record(false, false, 30)

	// The 100 sample fell out of the window: (10+20+30)/3 = 20.
	if got := m.Snapshot().LatencyMSAvg; got != 20 {
		t.Errorf("LatencyMSAvg = %v, want 20", got)
	}
	// Counters are not windowed.
	if got := m.Snapshot().RequestsTotal; got != 4 {
		t.Errorf("RequestsTotal = %d, want 4", got)
	}
}

func TestConcurrentRecords(t *testing.T) {
	m := New()
	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Record(w%2 == 0, i%5 == 0, float64(i))
			}
		}(w)
	}
	wg.Wait()

	s := m.Snapshot()
	if s.RequestsTotal != workers*perWorker {
		t.Errorf("RequestsTotal = %d, want %d", s.RequestsTotal, workers*perWorker)
	}
	if s.CacheHitsTotal != workers/2*perWorker {
		t.Errorf("CacheHitsTotal = %d, want %d", s.CacheHitsTotal, workers/2*perWorker)
	}
}
