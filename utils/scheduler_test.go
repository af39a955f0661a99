package utils

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type refreshRecorder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (r *refreshRecorder) refresh(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, ids)
	return r.err
}

func (r *refreshRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *refreshRecorder) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func waitForCount(t *testing.T, r *refreshRecorder, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d refreshes, got %d", want, r.count())
}

func TestScheduleUpdateCoalescesWithinWindow(t *testing.T) {
	rec := &refreshRecorder{}
	s := NewLiveMessageScheduler(30 * time.Millisecond)
	defer s.Stop()
	s.SetTarget(rec.refresh)

	for i := 0; i < 5; i++ {
		s.ScheduleUpdate("m1")
	}

	waitForCount(t, rec, 1)
	time.Sleep(100 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("five schedules within one window must yield one refresh, got %d", got)
	}
	if len(rec.batches[0]) != 1 || rec.batches[0][0] != "m1" {
		t.Fatalf("unexpected batch contents: %v", rec.batches[0])
	}
}

func TestScheduleUpdateDefaultsToGlobalID(t *testing.T) {
	rec := &refreshRecorder{}
	s := NewLiveMessageScheduler(20 * time.Millisecond)
	defer s.Stop()
	s.SetTarget(rec.refresh)

	s.ScheduleUpdate()

	waitForCount(t, rec, 1)
	if rec.batches[0][0] != DefaultUpdateID {
		t.Fatalf("expected default id, got %v", rec.batches[0])
	}
}

func TestUpdatesBeforeTargetAreFlushedAfterAttach(t *testing.T) {
	rec := &refreshRecorder{}
	s := NewLiveMessageScheduler(20 * time.Millisecond)
	defer s.Stop()

	// No target yet: requests must accumulate without panicking.
	for i := 0; i < 5; i++ {
		s.ScheduleUpdate("m1")
	}
	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("nothing should refresh before a target exists")
	}

	s.SetTarget(rec.refresh)
	waitForCount(t, rec, 1)
}

func TestRefreshErrorEndsCycleAndRecovers(t *testing.T) {
	rec := &refreshRecorder{err: errors.New("edit failed")}
	s := NewLiveMessageScheduler(20 * time.Millisecond)
	defer s.Stop()
	s.SetTarget(rec.refresh)

	s.ScheduleUpdate("m1")
	waitForCount(t, rec, 1)

	// The failed cycle must not wedge the scheduler.
	rec.setErr(nil)
	s.ScheduleUpdate("m1")
	waitForCount(t, rec, 2)
}

func TestSuppressionSkipsBatchedRefresh(t *testing.T) {
	rec := &refreshRecorder{}
	s := NewLiveMessageScheduler(20 * time.Millisecond)
	defer s.Stop()
	s.SetTarget(rec.refresh)

	s.SuppressFor(time.Hour)
	s.ScheduleUpdate("m1")

	time.Sleep(100 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("suppressed window must not refresh, got %d", got)
	}
}

func TestSuppressionByIDLeavesOtherIDsFlowing(t *testing.T) {
	rec := &refreshRecorder{}
	s := NewLiveMessageScheduler(20 * time.Millisecond)
	defer s.Stop()
	s.SetTarget(rec.refresh)

	s.SuppressFor(time.Hour, "locked-session")
	s.ScheduleUpdate("locked-session", "other-session")

	waitForCount(t, rec, 1)
	if len(rec.batches[0]) != 1 || rec.batches[0][0] != "other-session" {
		t.Fatalf("only the unsuppressed id should flush, got %v", rec.batches[0])
	}

	time.Sleep(100 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Fatalf("suppressed id must be dropped, not requeued, got %d batches", got)
	}
}

func TestStoppedSchedulerIgnoresUpdates(t *testing.T) {
	rec := &refreshRecorder{}
	s := NewLiveMessageScheduler(10 * time.Millisecond)
	s.SetTarget(rec.refresh)
	s.Stop()

	s.ScheduleUpdate("m1")
	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("stopped scheduler must not refresh")
	}
}
