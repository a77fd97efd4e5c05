// Package scheduler runs one-shot callbacks on runtime timers.
package scheduler

import (
	"sync"
	"time"
)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

type TimeScheduler struct {
	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

func NewTimeScheduler() *TimeScheduler {
	return &TimeScheduler{timers: map[Handle]*time.Timer{}}
}

// ScheduleOnce runs fn on its own goroutine after delay. Negative delays fire immediately.
func (s *TimeScheduler) ScheduleOnce(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return h
}

// Cancel stops a pending callback. Unknown or already fired handles are ignored.
func (s *TimeScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending reports how many callbacks are still armed.
func (s *TimeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending callback.
func (s *TimeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.timers {
		t.Stop()
		delete(s.timers, h)
	}
}
