package in

import (
	"context"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	idlein "soulshepherd/internal/modules/idle/port/in"
	"soulshepherd/internal/platform/scheduler"
)

type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) scheduler.Handle
	Cancel(h scheduler.Handle)
}

// Ticker collects idle souls every interval until stopped. Each tick
// re-arms a one-shot timer, so a late tick simply integrates a longer span.
type Ticker struct {
	usecase   idlein.Usecase
	scheduler Scheduler
	interval  time.Duration
	log       hclog.Logger

	mu      sync.Mutex
	handle  scheduler.Handle
	running bool
}

func NewTicker(usecase idlein.Usecase, sched Scheduler, interval time.Duration, logger hclog.Logger) *Ticker {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Ticker{usecase: usecase, scheduler: sched, interval: interval, log: logger}
}

func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.handle = t.scheduler.ScheduleOnce(t.interval, t.tick)
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	t.scheduler.Cancel(t.handle)
}

func (t *Ticker) tick() {
	if _, err := t.usecase.CollectNow(context.Background()); err != nil {
		t.log.Warn("idle collection failed", "error", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.handle = t.scheduler.ScheduleOnce(t.interval, t.tick)
	}
}
