package in_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soulshepherd/internal/modules/session/adapter/in"
	"soulshepherd/internal/platform/clock"
	"soulshepherd/internal/platform/scheduler"
)

type stepScheduler struct {
	mu     sync.Mutex
	next   scheduler.Handle
	fns    map[scheduler.Handle]func()
	delays map[scheduler.Handle]time.Duration
}

func newStepScheduler() *stepScheduler {
	return &stepScheduler{fns: map[scheduler.Handle]func(){}, delays: map[scheduler.Handle]time.Duration{}}
}

func (s *stepScheduler) ScheduleOnce(delay time.Duration, fn func()) scheduler.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.fns[s.next] = fn
	s.delays[s.next] = delay
	return s.next
}

func (s *stepScheduler) Cancel(h scheduler.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fns, h)
	delete(s.delays, h)
}

// fireAll runs every armed callback once.
func (s *stepScheduler) fireAll() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.fns))
	for h, fn := range s.fns {
		fns = append(fns, fn)
		delete(s.fns, h)
		delete(s.delays, h)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *stepScheduler) armed() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []time.Duration{}
	for _, d := range s.delays {
		out = append(out, d)
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	states []string
}

func (r *recordingSink) HandleIdleState(_ context.Context, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return nil
}

func (r *recordingSink) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func newMonitor(threshold time.Duration) (*in.ActivityMonitor, *recordingSink, *stepScheduler, *time.Time) {
	now := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	sched := newStepScheduler()
	m := in.NewActivityMonitor(sink, sched, clock.Func(func() time.Time { return now }), threshold, nil)
	return m, sink, sched, &now
}

func TestActivityMonitorGoesIdleAfterThreshold(t *testing.T) {
	t.Parallel()
	m, sink, sched, now := newMonitor(2 * time.Minute)
	m.Start()
	require.Equal(t, []time.Duration{2 * time.Minute}, sched.armed())

	*now = now.Add(2 * time.Minute)
	sched.fireAll()
	require.True(t, m.Idle())
	require.Equal(t, []string{in.StateIdle}, sink.States())
	require.Empty(t, sched.armed())

	*now = now.Add(time.Minute)
	m.Activity(context.Background())
	require.False(t, m.Idle())
	require.Equal(t, []string{in.StateIdle, in.StateActive}, sink.States())
	require.Equal(t, []time.Duration{2 * time.Minute}, sched.armed())
}

func TestActivityMonitorRearmsForRemainder(t *testing.T) {
	t.Parallel()
	m, sink, sched, now := newMonitor(2 * time.Minute)
	m.Start()

	*now = now.Add(90 * time.Second)
	m.Activity(context.Background())
	require.Empty(t, sink.States())

	// A late callback for the re-armed check sees only 30s of quiet.
	*now = now.Add(30 * time.Second)
	sched.fireAll()
	require.False(t, m.Idle())
	require.Equal(t, []time.Duration{90 * time.Second}, sched.armed())
}

func TestActivityMonitorStopped(t *testing.T) {
	t.Parallel()
	m, sink, sched, now := newMonitor(time.Minute)
	m.Activity(context.Background())
	require.Empty(t, sched.armed())

	m.Start()
	m.Stop()
	require.Empty(t, sched.armed())
	*now = now.Add(time.Hour)
	sched.fireAll()
	require.False(t, m.Idle())
	require.Empty(t, sink.States())
}
