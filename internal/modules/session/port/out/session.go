package out

import (
	"context"
	"time"

	"soulshepherd/internal/modules/session/domain"
	"soulshepherd/internal/platform/scheduler"
)

// Scheduler runs the session end timer. Callbacks may arrive late or not at
// all; the usecase treats them as a prompt to check the clock.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) scheduler.Handle
	Cancel(h scheduler.Handle)
}

type JournalStore interface {
	Save(ctx context.Context, entry domain.JournalEntry) (string, error)
	List(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}
