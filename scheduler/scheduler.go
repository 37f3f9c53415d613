// Package scheduler runs recurring background jobs (pack resync,
// gauge refresh) off a single min-heap driven loop.
package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

type Job struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Run      func()
	index    int
}

type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x interface{}) {
	n := len(*q)
	job := x.(*Job)
	job.index = n
	*q = append(*q, job)
}

func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	job := old[n-1]
	job.index = -1
	*q = old[0 : n-1]
	return job
}

type Scheduler struct {
	queue  jobQueue
	mutex  sync.Mutex
	nextID int64
	done   chan struct{}
	once   sync.Once
}

func New() *Scheduler {
	s := &Scheduler{
		queue:  make(jobQueue, 0),
		nextID: 1,
		done:   make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.loop()
	return s
}

// Every schedules fn to run now and then on every interval tick.
func (s *Scheduler) Every(interval time.Duration, fn func()) int64 {
	return s.schedule(0, interval, fn)
}

// After schedules fn to run once after delay.
func (s *Scheduler) After(delay time.Duration, fn func()) int64 {
	return s.schedule(delay, 0, fn)
}

func (s *Scheduler) schedule(delay, interval time.Duration, fn func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job := &Job{
		ID:       s.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Run:      fn,
	}
	s.nextID++

	heap.Push(&s.queue, job)
	return job.ID
}

func (s *Scheduler) Cancel(jobID int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, job := range s.queue {
		if job.ID == jobID {
			heap.Remove(&s.queue, i)
			break
		}
	}
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, job := range s.due(time.Now()) {
				go job.Run()
			}
		case <-s.done:
			return
		}
	}
}

// due pops every job whose time has come and requeues the recurring
// ones.
func (s *Scheduler) due(now time.Time) []*Job {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ready []*Job
	for s.queue.Len() > 0 {
		job := s.queue[0]
		if job.Execute.After(now) {
			break
		}
		heap.Pop(&s.queue)
		ready = append(ready, job)

		if job.Interval > 0 {
			job.Execute = now.Add(job.Interval)
			heap.Push(&s.queue, job)
		}
	}
	return ready
}
