package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	progressiondomain "soulshepherd/internal/modules/progression/domain"
	progressionusecase "soulshepherd/internal/modules/progression/usecase"
	"soulshepherd/internal/modules/session/domain"
	sessiondto "soulshepherd/internal/modules/session/dto"
	sessionin "soulshepherd/internal/modules/session/port/in"
	"soulshepherd/internal/modules/session/service"
	"soulshepherd/internal/modules/session/usecase"
	statedomain "soulshepherd/internal/modules/state/domain"
	statein "soulshepherd/internal/modules/state/port/in"
	stateusecase "soulshepherd/internal/modules/state/usecase"
	apperrors "soulshepherd/internal/platform/errors"
	"soulshepherd/internal/platform/scheduler"
)

var t0 = time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequentialID struct {
	mu sync.Mutex
	n  int
}

func (s *sequentialID) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("sess-%d", s.n)
}

type fixedDraw float64

func (f fixedDraw) Float64() float64 { return float64(f) }

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store offline")
	}
	m.data[key] = value
	return nil
}

func (m *memoryStore) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// manualScheduler keeps every callback, cancelled or not, so tests can
// deliver late or stale timer callbacks.
type manualScheduler struct {
	mu     sync.Mutex
	next   scheduler.Handle
	fns    map[scheduler.Handle]func()
	live   map[scheduler.Handle]time.Duration
	latest scheduler.Handle
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{fns: map[scheduler.Handle]func(){}, live: map[scheduler.Handle]time.Duration{}}
}

func (m *manualScheduler) ScheduleOnce(delay time.Duration, fn func()) scheduler.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.fns[m.next] = fn
	m.live[m.next] = delay
	m.latest = m.next
	return m.next
}

func (m *manualScheduler) Cancel(h scheduler.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, h)
}

func (m *manualScheduler) fire(h scheduler.Handle) {
	m.mu.Lock()
	fn := m.fns[h]
	delete(m.live, h)
	m.mu.Unlock()
	fn()
}

func (m *manualScheduler) pending() map[scheduler.Handle]time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[scheduler.Handle]time.Duration{}
	for h, d := range m.live {
		out[h] = d
	}
	return out
}

func (m *manualScheduler) last() scheduler.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
	fail    bool
}

func (j *memoryJournal) Save(_ context.Context, entry domain.JournalEntry) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return "", errors.New("journal dir read-only")
	}
	j.entries = append(j.entries, entry)
	return "journal/" + entry.SessionID + ".md", nil
}

func (j *memoryJournal) List(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := append([]domain.JournalEntry(nil), j.entries...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type harness struct {
	clock     *fakeClock
	store     *memoryStore
	catalog   progressiondomain.Catalog
	state     statein.Usecase
	scheduler *manualScheduler
	journal   *memoryJournal
	uc        sessionin.Usecase
	completed []sessiondto.EndOutput
}

func testCatalog(t *testing.T) progressiondomain.Catalog {
	t.Helper()
	catalog, err := progressiondomain.NewCatalog([]progressiondomain.Boss{
		{ID: 0, Name: "The Restless Athlete", InitialResolve: 100, UnlockLevel: 1},
		{ID: 1, Name: "The Unfinished Scholar", InitialResolve: 150, UnlockLevel: 3},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return catalog
}

func newHarness(t *testing.T, store *memoryStore, clk *fakeClock) *harness {
	t.Helper()
	h := &harness{clock: clk, store: store, catalog: testCatalog(t), scheduler: newManualScheduler(), journal: &memoryJournal{}}
	policy := stateusecase.RetryPolicy{MaxRetries: 1, InitialInterval: time.Millisecond, Multiplier: 1}
	h.state = stateusecase.NewInteractor(store, h.catalog, clk, policy, nil)
	if _, err := h.state.Load(context.Background()); err != nil {
		t.Fatalf("load state: %v", err)
	}
	h.uc = h.build(h.catalog)
	return h
}

func (h *harness) build(catalog progressiondomain.Catalog) sessionin.Usecase {
	progression := progressionusecase.NewInteractor(h.state, catalog, nil)
	svc := service.NewSessionService(h.clock, &sequentialID{}, fixedDraw(0.99))
	uc := usecase.NewInteractor(svc, h.state, progression, h.scheduler, h.journal, nil)
	uc.OnComplete(func(out sessiondto.EndOutput) { h.completed = append(h.completed, out) })
	return uc
}

func (h *harness) setStats(t *testing.T, stats statedomain.Stats) {
	t.Helper()
	if _, err := h.state.Update(context.Background(), func(s *statedomain.GameState) error {
		s.Player.Stats = stats
		return nil
	}); err != nil {
		t.Fatalf("set stats: %v", err)
	}
}

func near(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestSessionLifecycleAppliesRewardsAtomically(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, &fakeClock{now: t0})
	h.setStats(t, statedomain.Stats{Spirit: 1, Harmony: 0, Soulflow: 1})
	ctx := context.Background()

	start, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 25, TaskID: "write report"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.SessionID == "" || !start.EndsAt.Equal(t0.Add(25*time.Minute)) || start.Warning != "" {
		t.Fatalf("unexpected start output: %+v", start)
	}
	pending := h.scheduler.pending()
	if len(pending) != 1 || pending[h.scheduler.last()] != 25*time.Minute {
		t.Fatalf("expected one 25m end timer, got %v", pending)
	}

	h.clock.Advance(10 * time.Minute)
	current, err := h.uc.GetCurrent(ctx)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current.SessionID != start.SessionID || current.Remaining != 15*time.Minute {
		t.Fatalf("unexpected current session: %+v", current)
	}

	h.clock.Advance(15 * time.Minute)
	h.scheduler.fire(h.scheduler.last())
	if len(h.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(h.completed))
	}
	end := h.completed[0]
	if end.Reason != string(domain.EndTimer) || end.Early || end.LateBy != 0 {
		t.Fatalf("unexpected end: %+v", end)
	}
	if !near(end.Result.SoulInsight, 275) || !near(end.Result.SoulEmbers, 52.5) || !near(end.Result.BossProgress, 12.5) {
		t.Fatalf("unexpected rewards: %+v", end.Result)
	}
	if end.Experience.NewLevel != 2 || end.Experience.SkillPointsGranted != 1 {
		t.Fatalf("unexpected experience: %+v", end.Experience)
	}
	if !near(end.Boss.RemainingResolve, 87.5) || end.Boss.WasDefeated {
		t.Fatalf("unexpected boss damage: %+v", end.Boss)
	}
	if end.CurrentStreak != 1 || end.JournalPath == "" {
		t.Fatalf("unexpected streak or journal: %+v", end)
	}

	s := h.state.Get()
	if s.Session != nil {
		t.Fatalf("session must be cleared")
	}
	if !near(s.Player.SoulEmbers, 52.5) || s.Player.Level != 2 {
		t.Fatalf("unexpected player: %+v", s.Player)
	}
	if s.Statistics.TotalSessions != 1 || !near(s.Statistics.TotalFocusTime, 1500) || s.Statistics.LastSessionDate != "2026-09-14" {
		t.Fatalf("unexpected statistics: %+v", s.Statistics)
	}
	if !s.Progression.IdleState.LastCollectionTime.Equal(t0.Add(25 * time.Minute)) {
		t.Fatalf("idle clock not reset to session end: %v", s.Progression.IdleState.LastCollectionTime)
	}
	if len(h.scheduler.pending()) != 0 {
		t.Fatalf("end timer left armed")
	}
	entries, _ := h.uc.History(ctx, 0)
	if len(entries) != 1 || entries[0].BossName != "The Restless Athlete" || entries[0].LevelAfter != 2 {
		t.Fatalf("unexpected journal: %+v", entries)
	}
}

func TestStartRejectsConcurrentSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, &fakeClock{now: t0})
	ctx := context.Background()

	first, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 30})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 30}); !errors.Is(err, apperrors.ErrConcurrentSession) {
		t.Fatalf("expected concurrent session error, got %v", err)
	}
	if got := h.state.Get().Session; got == nil || got.ID != first.SessionID {
		t.Fatalf("first session must be untouched: %+v", got)
	}
	if len(h.scheduler.pending()) != 1 {
		t.Fatalf("rejected start must not arm a timer")
	}
}

func TestStartValidatesDurationAndUsesDefault(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, &fakeClock{now: t0})
	ctx := context.Background()

	if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 200}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	out, err := h.uc.Start(ctx, sessiondto.StartInput{})
	if err != nil {
		t.Fatalf("start with default: %v", err)
	}
	if out.DurationMinutes != statedomain.DefaultSessionMinutes {
		t.Fatalf("expected default duration, got %d", out.DurationMinutes)
	}
}

func TestStartCollectsIdleSoulsFirst(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	clk.Advance(10 * time.Minute)

	out, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 25})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !near(out.IdleEmbers, 10) {
		t.Fatalf("expected 10 idle embers, got %v", out.IdleEmbers)
	}
	if !near(h.state.Get().Player.SoulEmbers, 10) {
		t.Fatalf("idle embers not credited")
	}
}

func TestPauseResumeTransitions(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	ctx := context.Background()

	if _, err := h.uc.Pause(ctx); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
	if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 20}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := h.uc.Resume(ctx); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("resume of active session must fail, got %v", err)
	}

	clk.Advance(2 * time.Minute)
	paused, err := h.uc.Pause(ctx)
	if err != nil || !paused.IsPaused {
		t.Fatalf("pause: %+v %v", paused, err)
	}
	if _, err := h.uc.Pause(ctx); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("double pause must fail, got %v", err)
	}
	clk.Advance(6 * time.Minute)
	resumed, err := h.uc.Resume(ctx)
	if err != nil || resumed.IsPaused || !near(resumed.IdleSeconds, 360) {
		t.Fatalf("resume: %+v %v", resumed, err)
	}

	clk.Advance(12 * time.Minute)
	end, err := h.uc.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !end.CompromisedByIdle || !end.Result.WasCompromised {
		t.Fatalf("6 idle minutes of 20 must compromise the session: %+v", end)
	}
	if !near(end.Result.IdleTime, 360) || !near(end.Result.ActiveTime, 840) {
		t.Fatalf("unexpected times: %+v", end.Result)
	}
	if h.state.Get().Statistics.CompromisedSessions != 1 {
		t.Fatalf("compromised session not counted")
	}
}

func TestMarkCompromisedAppliesPenalty(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	h.setStats(t, statedomain.Stats{Spirit: 1, Soulflow: 1})
	ctx := context.Background()

	if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 25}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for range 2 {
		out, err := h.uc.MarkCompromised(ctx)
		if err != nil || !out.IsCompromised {
			t.Fatalf("mark compromised: %+v %v", out, err)
		}
	}
	clk.Advance(25 * time.Minute)
	end, err := h.uc.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !near(end.Result.SoulInsight, 192.5) || !near(end.Result.SoulEmbers, 36.75) || !near(end.Result.BossProgress, 8.75) {
		t.Fatalf("unexpected penalized rewards: %+v", end.Result)
	}
}

func TestEarlyEndRewardsPlannedDuration(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	h.setStats(t, statedomain.Stats{Spirit: 1})
	ctx := context.Background()

	if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 60}); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(10 * time.Minute)
	end, err := h.uc.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end.Reason != string(domain.EndManual) || !end.Early || !near(end.RewardMinutes, 60) || !near(end.Result.SoulInsight, 660) {
		t.Fatalf("unexpected early end: %+v", end)
	}
	if len(h.scheduler.pending()) != 0 {
		t.Fatalf("early end must cancel the timer")
	}
	if len(h.completed) != 0 {
		t.Fatalf("manual end must not notify completion listeners")
	}
}

func TestImmediateEndStillRewardsPlannedDuration(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	h.setStats(t, statedomain.Stats{Spirit: 1, Soulflow: 1})
	ctx := context.Background()

	for _, after := range []time.Duration{0, 24 * time.Minute} {
		if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 25}); err != nil {
			t.Fatalf("start: %v", err)
		}
		clk.Advance(after)
		end, err := h.uc.End(ctx)
		if err != nil {
			t.Fatalf("end after %v: %v", after, err)
		}
		if !end.Early || !near(end.RewardMinutes, 25) {
			t.Fatalf("end after %v: unexpected reward minutes %+v", after, end)
		}
		if !near(end.Result.SoulInsight, 275) || !near(end.Result.SoulEmbers, 52.5) || !near(end.Result.BossProgress, 12.5) {
			t.Fatalf("end after %v: unexpected rewards %+v", after, end.Result)
		}
		clk.Advance(time.Minute)
	}
}

func TestTimerEndsSessionAndNotifiesListeners(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)

	start, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 25})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(26 * time.Minute)
	h.scheduler.fire(h.scheduler.last())

	if len(h.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(h.completed))
	}
	got := h.completed[0]
	if got.SessionID != start.SessionID || got.Reason != string(domain.EndTimer) || got.LateBy != time.Minute {
		t.Fatalf("unexpected completion: %+v", got)
	}
	if !near(got.Result.ActiveTime, 1500) {
		t.Fatalf("late time must not count: %+v", got.Result)
	}
	if h.state.Get().Session != nil {
		t.Fatalf("session must be cleared")
	}
}

func TestEarlyTimerCallbackRearms(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)

	if _, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 25}); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(10 * time.Minute)
	first := h.scheduler.last()
	h.scheduler.fire(first)

	if h.state.Get().Session == nil {
		t.Fatalf("early callback must not end the session")
	}
	pending := h.scheduler.pending()
	rearmed := h.scheduler.last()
	if rearmed == first || pending[rearmed] != 15*time.Minute {
		t.Fatalf("expected re-arm for the remaining 15m, got %v", pending)
	}
	if len(h.completed) != 0 {
		t.Fatalf("unexpected completion")
	}
}

func TestStaleTimerCallbackIsIgnored(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	ctx := context.Background()

	if _, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 5}); err != nil {
		t.Fatalf("start: %v", err)
	}
	stale := h.scheduler.last()
	clk.Advance(time.Minute)
	if _, err := h.uc.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	second, err := h.uc.Start(ctx, sessiondto.StartInput{DurationMinutes: 5})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}

	clk.Advance(10 * time.Minute)
	h.scheduler.fire(stale)
	if got := h.state.Get().Session; got == nil || got.ID != second.SessionID {
		t.Fatalf("stale callback touched the new session: %+v", got)
	}
	if len(h.completed) != 0 {
		t.Fatalf("stale callback must not notify listeners")
	}
}

func TestReconcileFinishesOverdueSession(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	store := &memoryStore{data: map[string][]byte{}}
	h := newHarness(t, store, clk)
	start, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 30})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// A fresh process finds the persisted session two hours later.
	clk.Advance(2 * time.Hour)
	restarted := newHarness(t, store, clk)
	recovered, err := restarted.uc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if recovered == nil || recovered.SessionID != start.SessionID || recovered.Reason != string(domain.EndRecovered) {
		t.Fatalf("unexpected recovery: %+v", recovered)
	}
	if recovered.LateBy != 90*time.Minute || !near(recovered.RewardMinutes, 30) {
		t.Fatalf("unexpected recovery timing: %+v", recovered)
	}
	if len(restarted.completed) != 1 {
		t.Fatalf("recovery must notify listeners")
	}
	if restarted.state.Get().Session != nil {
		t.Fatalf("recovered session must be cleared")
	}
	if _, err := restarted.uc.End(context.Background()); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
}

func TestReconcileRearmsRunningSession(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	store := &memoryStore{data: map[string][]byte{}}
	h := newHarness(t, store, clk)
	if _, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 30}); err != nil {
		t.Fatalf("start: %v", err)
	}

	clk.Advance(12 * time.Minute)
	restarted := newHarness(t, store, clk)
	recovered, err := restarted.uc.Reconcile(context.Background())
	if err != nil || recovered != nil {
		t.Fatalf("running session must not be ended: %+v %v", recovered, err)
	}
	pending := restarted.scheduler.pending()
	if len(pending) != 1 || pending[restarted.scheduler.last()] != 18*time.Minute {
		t.Fatalf("expected timer for the remaining 18m, got %v", pending)
	}
}

func TestEndOnOverdueSessionReturnsRecoveredResult(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	if _, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 5}); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(time.Hour)

	end, err := h.uc.End(context.Background())
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end.Reason != string(domain.EndRecovered) || end.Early {
		t.Fatalf("unexpected end: %+v", end)
	}
}

func TestPersistenceFailureIsAWarning(t *testing.T) {
	t.Parallel()
	store := &memoryStore{data: map[string][]byte{}}
	h := newHarness(t, store, &fakeClock{now: t0})
	store.setFail(true)

	out, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 25})
	if err != nil {
		t.Fatalf("start must succeed in memory: %v", err)
	}
	if out.Warning == "" {
		t.Fatalf("expected persistence warning")
	}
	if got := h.state.Get().Session; got == nil || got.ID != out.SessionID {
		t.Fatalf("in-memory session missing")
	}
}

func TestCatalogErrorAbortsEnd(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	if _, err := h.state.Update(context.Background(), func(s *statedomain.GameState) error {
		s.Progression.CurrentBossIndex = 1
		s.Progression.CurrentBossResolve = 150
		return nil
	}); err != nil {
		t.Fatalf("seed progression: %v", err)
	}
	short, err := progressiondomain.NewCatalog([]progressiondomain.Boss{{ID: 0, Name: "only", InitialResolve: 100, UnlockLevel: 1}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	uc := h.build(short)

	if _, err := uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 10}); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(5 * time.Minute)
	before := h.state.Get()
	if _, err := uc.End(context.Background()); !errors.Is(err, apperrors.ErrCatalogIndex) {
		t.Fatalf("expected catalog index error, got %v", err)
	}
	after := h.state.Get()
	if after.Session == nil || after.Player != before.Player || after.Statistics != before.Statistics {
		t.Fatalf("aborted end must leave state untouched")
	}
}

func TestJournalFailureDoesNotFailEnd(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0}
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, clk)
	h.journal.fail = true
	if _, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 5}); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.Advance(5 * time.Minute)

	end, err := h.uc.End(context.Background())
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end.JournalPath != "" || !strings.Contains(end.Warning, "journal") {
		t.Fatalf("expected journal warning: %+v", end)
	}
	if h.state.Get().Statistics.TotalSessions != 1 {
		t.Fatalf("session must still be recorded")
	}
}

func TestConcurrentStartsAllowOneSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &memoryStore{data: map[string][]byte{}}, &fakeClock{now: t0})

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.uc.Start(context.Background(), sessiondto.StartInput{DurationMinutes: 25}); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if started != 1 {
		t.Fatalf("expected exactly one session to start, got %d", started)
	}
}
