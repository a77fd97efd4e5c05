package in

import (
	"context"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"soulshepherd/internal/platform/clock"
	"soulshepherd/internal/platform/scheduler"
)

type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) scheduler.Handle
	Cancel(h scheduler.Handle)
}

// IdleStateSink receives idle transitions. SignalHandler implements it.
type IdleStateSink interface {
	HandleIdleState(ctx context.Context, state string) error
}

// ActivityMonitor turns a stream of activity pings into idle and active
// transitions. The user is idle once threshold passes without a ping.
type ActivityMonitor struct {
	sink      IdleStateSink
	scheduler Scheduler
	clock     clock.Clock
	threshold time.Duration
	log       hclog.Logger

	mu       sync.Mutex
	handle   scheduler.Handle
	last     time.Time
	idle     bool
	running  bool
	checkSeq uint64
}

func NewActivityMonitor(sink IdleStateSink, sched Scheduler, clk clock.Clock, threshold time.Duration, logger hclog.Logger) *ActivityMonitor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ActivityMonitor{sink: sink, scheduler: sched, clock: clk, threshold: threshold, log: logger}
}

func (m *ActivityMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.last = m.clock.Now()
	m.armLocked(m.threshold)
}

func (m *ActivityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.checkSeq++
	m.scheduler.Cancel(m.handle)
}

// Activity records user input. Leaving the idle state resumes the session.
func (m *ActivityMonitor) Activity(ctx context.Context) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.last = m.clock.Now()
	wasIdle := m.idle
	m.idle = false
	m.scheduler.Cancel(m.handle)
	m.armLocked(m.threshold)
	m.mu.Unlock()

	if wasIdle {
		m.emit(ctx, StateActive)
	}
}

// Idle reports whether the monitor currently considers the user idle.
func (m *ActivityMonitor) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idle
}

func (m *ActivityMonitor) armLocked(delay time.Duration) {
	m.checkSeq++
	seq := m.checkSeq
	m.handle = m.scheduler.ScheduleOnce(delay, func() { m.check(seq) })
}

func (m *ActivityMonitor) check(seq uint64) {
	m.mu.Lock()
	if !m.running || seq != m.checkSeq || m.idle {
		m.mu.Unlock()
		return
	}
	quiet := m.clock.Now().Sub(m.last)
	if quiet < m.threshold {
		m.armLocked(m.threshold - quiet)
		m.mu.Unlock()
		return
	}
	m.idle = true
	m.mu.Unlock()

	m.emit(context.Background(), StateIdle)
}

func (m *ActivityMonitor) emit(ctx context.Context, state string) {
	if err := m.sink.HandleIdleState(ctx, state); err != nil {
		m.log.Warn("idle transition failed", "state", state, "error", err)
	}
}
