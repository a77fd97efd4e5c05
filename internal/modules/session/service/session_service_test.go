package service_test

import (
	"math"
	"testing"
	"time"

	"soulshepherd/internal/modules/session/service"
	statedomain "soulshepherd/internal/modules/state/domain"
	"soulshepherd/internal/platform/clock"
)

type fixedID struct{}

func (fixedID) New() string { return "sess-1" }

type fixedDraw float64

func (f fixedDraw) Float64() float64 { return float64(f) }

func TestStartStampsClockAndID(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := service.NewSessionService(clock.Func(func() time.Time { return now }), fixedID{}, fixedDraw(0.5))

	s, err := svc.Start(25, "inbox zero")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.ID != "sess-1" || !s.StartTime.Equal(now) || s.Duration != 25 || s.TaskID != "inbox zero" || !s.IsActive {
		t.Fatalf("unexpected session: %+v", s)
	}
	if _, err := svc.Start(3, ""); err == nil {
		t.Fatalf("expected duration validation error")
	}
}

func TestFinishScoresFullSession(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := service.NewSessionService(clock.Func(func() time.Time { return now }), fixedID{}, fixedDraw(0.5))
	s, err := svc.Start(25, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	completion, reward := svc.Finish(s, statedomain.Stats{Spirit: 1, Soulflow: 1}, now.Add(40*time.Minute))
	if completion.Early || completion.Duration != 25 {
		t.Fatalf("unexpected completion: %+v", completion)
	}
	if !near(reward.SoulInsight, 275) || !near(reward.SoulEmbers, 52.5) || !near(reward.BossProgress, 12.5) {
		t.Fatalf("unexpected reward: %+v", reward)
	}
}

func near(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
