package scheduler

import (
	"container/heap"
	"testing"
	"time"
)

// newIdleScheduler builds a scheduler without the ticking loop so the
// tests can drive due() deterministically.
func newIdleScheduler() *Scheduler {
	s := &Scheduler{
		queue:  make(jobQueue, 0),
		nextID: 1,
		done:   make(chan struct{}),
	}
	heap.Init(&s.queue)
	return s
}

func TestScheduler_After(t *testing.T) {
	s := newIdleScheduler()

	ran := false
	s.After(time.Minute, func() { ran = true })

	if jobs := s.due(time.Now()); len(jobs) != 0 {
		t.Fatalf("Job should not be due yet, got %d", len(jobs))
	}

	jobs := s.due(time.Now().Add(2 * time.Minute))
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 due job, got %d", len(jobs))
	}
	jobs[0].Run()
	if !ran {
		t.Error("Expected the job function to run")
	}

	// One-shot jobs are not requeued.
	if jobs := s.due(time.Now().Add(time.Hour)); len(jobs) != 0 {
		t.Errorf("One-shot job should not recur, got %d", len(jobs))
	}
}

func TestScheduler_EveryRequeues(t *testing.T) {
	s := newIdleScheduler()
	s.Every(time.Minute, func() {})

	now := time.Now()
	if jobs := s.due(now); len(jobs) != 1 {
		t.Fatalf("Recurring job should fire immediately, got %d", len(jobs))
	}
	if jobs := s.due(now.Add(30 * time.Second)); len(jobs) != 0 {
		t.Fatalf("Job requeued too early, got %d", len(jobs))
	}
	if jobs := s.due(now.Add(2 * time.Minute)); len(jobs) != 1 {
		t.Fatalf("Expected the job due again after the interval, got %d", len(jobs))
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := newIdleScheduler()
	keep := s.Every(time.Minute, func() {})
	drop := s.Every(time.Minute, func() {})

	s.Cancel(drop)

	jobs := s.due(time.Now())
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job after cancel, got %d", len(jobs))
	}
	if jobs[0].ID != keep {
		t.Errorf("The wrong job survived: %d", jobs[0].ID)
	}
}

func TestScheduler_Ordering(t *testing.T) {
	s := newIdleScheduler()

	var order []string
	s.After(2*time.Minute, func() { order = append(order, "late") })
	s.After(time.Minute, func() { order = append(order, "early") })

	for _, job := range s.due(time.Now().Add(time.Hour)) {
		job.Run()
	}
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Errorf("Jobs should pop in execute order, got %v", order)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := New()
	s.Stop()
	s.Stop()
}
