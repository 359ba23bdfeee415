package engine

import (
	"sync"
	"testing"
)

func TestMetricsSnapshotReflectsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordEnqueued()
	m.RecordEnqueued()
	m.RecordProcessed()
	m.RecordDroppedOldest()
	m.RecordDroppedNewest()
	m.RecordRetryEvent()
	m.RecordRetryEvent()
	m.RecordRetryEvent()
	m.RecordItemWithRetry()
	m.ObserveItemAttempts(3)

	snap := m.Snapshot()
	if snap.Enqueued != 2 {
		t.Errorf("enqueued = %d, want 2", snap.Enqueued)
	}
	if snap.Processed != 1 {
		t.Errorf("processed = %d, want 1", snap.Processed)
	}
	if snap.DroppedOldest != 1 {
		t.Errorf("droppedOldest = %d, want 1", snap.DroppedOldest)
	}
	if snap.DroppedNewest != 1 {
		t.Errorf("droppedNewest = %d, want 1", snap.DroppedNewest)
	}
	if snap.RetryEvents != 3 {
		t.Errorf("retryEvents = %d, want 3", snap.RetryEvents)
	}
	if snap.ItemsWithRetry != 1 {
		t.Errorf("itemsWithRetry = %d, want 1", snap.ItemsWithRetry)
	}
	if snap.MaxItemRetryAttempts != 3 {
		t.Errorf("maxItemRetryAttempts = %d, want 3", snap.MaxItemRetryAttempts)
	}
}

func TestObserveItemAttemptsKeepsHighWaterMark(t *testing.T) {
	m := NewMetrics()
	m.ObserveItemAttempts(5)
	m.ObserveItemAttempts(2)
	if got := m.Snapshot().MaxItemRetryAttempts; got != 5 {
		t.Errorf("maxItemRetryAttempts = %d, want 5 after a lower observation", got)
	}
	m.ObserveItemAttempts(9)
	if got := m.Snapshot().MaxItemRetryAttempts; got != 9 {
		t.Errorf("maxItemRetryAttempts = %d, want 9", got)
	}
}

func TestObserveItemAttemptsUnderContention(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				m.ObserveItemAttempts(base + i)
			}
		}(g * 100)
	}
	wg.Wait()
	if got := m.Snapshot().MaxItemRetryAttempts; got != 800 {
		t.Errorf("maxItemRetryAttempts = %d, want 800", got)
	}
}
