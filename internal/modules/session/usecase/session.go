package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	idledomain "soulshepherd/internal/modules/idle/domain"
	progressiondomain "soulshepherd/internal/modules/progression/domain"
	progressiondto "soulshepherd/internal/modules/progression/dto"
	progressionin "soulshepherd/internal/modules/progression/port/in"
	rewarddomain "soulshepherd/internal/modules/reward/domain"
	"soulshepherd/internal/modules/session/domain"
	sessiondto "soulshepherd/internal/modules/session/dto"
	sessionin "soulshepherd/internal/modules/session/port/in"
	sessionout "soulshepherd/internal/modules/session/port/out"
	"soulshepherd/internal/modules/session/service"
	statedomain "soulshepherd/internal/modules/state/domain"
	statein "soulshepherd/internal/modules/state/port/in"
	apperrors "soulshepherd/internal/platform/errors"
	"soulshepherd/internal/platform/scheduler"
)

// Interactor owns the focus session lifecycle. Commands and timer callbacks
// are serialized on mu; completion listeners run after it is released.
type Interactor struct {
	svc         *service.SessionService
	state       statein.Usecase
	progression progressionin.Usecase
	scheduler   sessionout.Scheduler
	journal     sessionout.JournalStore
	log         hclog.Logger

	mu        sync.Mutex
	timer     scheduler.Handle
	timerFor  string
	timerSeq  uint64
	listeners []func(sessiondto.EndOutput)
	pending   []sessiondto.EndOutput
}

func NewInteractor(
	svc *service.SessionService,
	state statein.Usecase,
	progression progressionin.Usecase,
	sched sessionout.Scheduler,
	journal sessionout.JournalStore,
	logger hclog.Logger,
) sessionin.Usecase {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Interactor{
		svc:         svc,
		state:       state,
		progression: progression,
		scheduler:   sched,
		journal:     journal,
		log:         logger,
	}
}

func (i *Interactor) OnComplete(fn func(sessiondto.EndOutput)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

func (i *Interactor) Reconcile(ctx context.Context) (*sessiondto.EndOutput, error) {
	defer i.flush()
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reconcileLocked(ctx)
}

func (i *Interactor) Start(ctx context.Context, input sessiondto.StartInput) (sessiondto.StartOutput, error) {
	defer i.flush()
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.reconcileLocked(ctx); err != nil {
		return sessiondto.StartOutput{}, err
	}
	minutes := input.DurationMinutes
	if minutes == 0 {
		minutes = i.state.Get().Settings.DefaultSessionMinutes
	}
	session, err := i.svc.Start(minutes, input.TaskID)
	if err != nil {
		return sessiondto.StartOutput{}, err
	}

	var accrual idledomain.Accrual
	_, err = i.state.Update(ctx, func(s *statedomain.GameState) error {
		if s.Session != nil {
			return apperrors.ErrConcurrentSession
		}
		accrual = idledomain.Accrue(s, session.StartTime)
		started := session
		s.Session = &started
		return nil
	})
	warning, err := apperrors.Warning(err)
	if err != nil {
		return sessiondto.StartOutput{}, err
	}

	i.armLocked(session)
	i.log.Info("focus session started", "session_id", session.ID, "task_id", session.TaskID, "minutes", session.Duration)
	return sessiondto.StartOutput{
		SessionID:       session.ID,
		TaskID:          session.TaskID,
		StartedAt:       session.StartTime,
		EndsAt:          session.EndTime(),
		DurationMinutes: session.Duration,
		IdleEmbers:      accrual.Embers,
		Warning:         warning,
	}, nil
}

func (i *Interactor) Pause(ctx context.Context) (sessiondto.SessionOutput, error) {
	return i.transition(ctx, "paused", func(s *statedomain.SessionState, now time.Time) (bool, error) {
		return true, domain.Pause(s, now)
	})
}

func (i *Interactor) Resume(ctx context.Context) (sessiondto.SessionOutput, error) {
	return i.transition(ctx, "resumed", func(s *statedomain.SessionState, now time.Time) (bool, error) {
		_, err := domain.Resume(s, now)
		return true, err
	})
}

func (i *Interactor) MarkCompromised(ctx context.Context) (sessiondto.SessionOutput, error) {
	return i.transition(ctx, "compromised", func(s *statedomain.SessionState, _ time.Time) (bool, error) {
		return domain.MarkCompromised(s)
	})
}

func (i *Interactor) End(ctx context.Context) (sessiondto.EndOutput, error) {
	defer i.flush()
	i.mu.Lock()
	defer i.mu.Unlock()

	recovered, err := i.reconcileLocked(ctx)
	if err != nil {
		return sessiondto.EndOutput{}, err
	}
	if recovered != nil {
		return *recovered, nil
	}
	return i.endLocked(ctx, domain.EndManual, i.svc.Now())
}

func (i *Interactor) GetCurrent(ctx context.Context) (sessiondto.SessionOutput, error) {
	defer i.flush()
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.reconcileLocked(ctx); err != nil {
		return sessiondto.SessionOutput{}, err
	}
	s := i.state.Get()
	if s.Session == nil {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	return toSessionOutput(*s.Session, i.svc.Now(), ""), nil
}

func (i *Interactor) History(ctx context.Context, limit int) ([]sessiondto.JournalEntry, error) {
	if i.journal == nil {
		return nil, nil
	}
	return i.journal.List(ctx, limit)
}

// transition applies a state machine step to the running session. A step
// that reports no change is not persisted.
func (i *Interactor) transition(ctx context.Context, verb string, step func(*statedomain.SessionState, time.Time) (bool, error)) (sessiondto.SessionOutput, error) {
	defer i.flush()
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.reconcileLocked(ctx); err != nil {
		return sessiondto.SessionOutput{}, err
	}
	current := i.state.Get()
	if current.Session == nil {
		return sessiondto.SessionOutput{}, apperrors.ErrNoActiveSession
	}
	now := i.svc.Now()
	session := *current.Session
	changed, err := step(&session, now)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	if !changed {
		return toSessionOutput(session, now, ""), nil
	}

	next, err := i.state.Update(ctx, func(s *statedomain.GameState) error {
		if s.Session == nil || s.Session.ID != session.ID {
			return apperrors.ErrNoActiveSession
		}
		updated := session
		s.Session = &updated
		return nil
	})
	warning, err := apperrors.Warning(err)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	i.log.Debug("focus session "+verb, "session_id", session.ID)
	return toSessionOutput(*next.Session, now, warning), nil
}

// reconcileLocked finishes an overdue session and makes sure a running one
// has its end timer armed.
func (i *Interactor) reconcileLocked(ctx context.Context) (*sessiondto.EndOutput, error) {
	s := i.state.Get()
	if s.Session == nil {
		i.cancelTimerLocked()
		return nil, nil
	}
	session := *s.Session
	if !domain.Overdue(session, i.svc.Now()) {
		if i.timerFor != session.ID {
			i.armLocked(session)
		}
		return nil, nil
	}

	out, err := i.endLocked(ctx, domain.EndRecovered, i.svc.Now())
	if err != nil {
		return nil, fmt.Errorf("recover overdue session %s: %w", session.ID, err)
	}
	i.log.Info("finished overdue focus session", "session_id", session.ID, "late_by", out.LateBy)
	i.pending = append(i.pending, out)
	return &out, nil
}

// endLocked settles the running session in one state update: rewards,
// experience, boss damage, statistics and the idle clock.
func (i *Interactor) endLocked(ctx context.Context, reason domain.EndReason, now time.Time) (sessiondto.EndOutput, error) {
	catalog := i.progression.Catalog()

	var (
		session     statedomain.SessionState
		completion  domain.Completion
		reward      rewarddomain.Result
		experience  progressiondomain.ExperienceResult
		damage      progressiondomain.DamageResult
		levelBefore int
	)
	next, err := i.state.Update(ctx, func(s *statedomain.GameState) error {
		if s.Session == nil {
			return apperrors.ErrNoActiveSession
		}
		session = *s.Session
		levelBefore = s.Player.Level
		completion, reward = i.svc.Finish(session, s.Player.Stats, now)

		var err error
		experience, err = progressiondomain.AddExperience(&s.Player, reward.SoulInsight)
		if err != nil {
			return err
		}
		s.Player.SoulEmbers += reward.SoulEmbers
		damage, err = progressiondomain.DamageBoss(&s.Progression, catalog, reward.BossProgress)
		if err != nil {
			return err
		}
		domain.RecordCompletion(&s.Statistics, completion, domain.Outcome{
			SoulInsight:  reward.SoulInsight,
			SoulEmbers:   reward.SoulEmbers,
			Critical:     reward.WasCritical,
			BossDefeated: damage.WasDefeated,
		})
		s.Session = nil
		s.Progression.IdleState.LastCollectionTime = completion.EndedAt
		return nil
	})
	warning, err := apperrors.Warning(err)
	if err != nil {
		if errors.Is(err, apperrors.ErrCatalogIndex) {
			i.log.Error("focus session not settled, boss catalog lookup failed", "error", err)
		}
		return sessiondto.EndOutput{}, err
	}
	i.cancelTimerLocked()

	out := sessiondto.EndOutput{
		SessionID:         session.ID,
		TaskID:            session.TaskID,
		Reason:            string(reason),
		StartedAt:         session.StartTime,
		EndedAt:           completion.EndedAt,
		RewardMinutes:     completion.Duration,
		Early:             completion.Early,
		LateBy:            completion.LateBy,
		CompromisedByIdle: completion.CompromisedByIdle,
		Result: sessiondto.SessionResult{
			SoulInsight:    reward.SoulInsight,
			SoulEmbers:     reward.SoulEmbers,
			BossProgress:   reward.BossProgress,
			WasCritical:    reward.WasCritical,
			WasCompromised: reward.WasCompromised,
			IdleTime:       completion.IdleTime,
			ActiveTime:     completion.ActiveTime,
		},
		Experience: progressiondto.ExperienceOutput{
			NewLevel:               experience.NewLevel,
			LeveledUp:              experience.LeveledUp,
			SkillPointsGranted:     experience.SkillPointsGranted,
			LevelUps:               progressiondto.FromLevelUps(experience.LevelUps),
			SoulInsight:            next.Player.SoulInsight,
			SoulInsightToNextLevel: next.Player.SoulInsightToNextLevel,
		},
		Boss:          progressiondto.FromDamage(damage, next.Progression, next.Player.Level, ""),
		CurrentStreak: next.Statistics.CurrentStreak,
		Warning:       warning,
	}
	i.log.Info("focus session ended",
		"session_id", session.ID,
		"reason", reason,
		"soul_insight", reward.SoulInsight,
		"soul_embers", reward.SoulEmbers,
		"boss_progress", reward.BossProgress,
		"critical", reward.WasCritical,
		"compromised", reward.WasCompromised,
	)

	if i.journal != nil {
		path, err := i.journal.Save(ctx, domain.JournalEntry{
			SessionID:         session.ID,
			TaskID:            session.TaskID,
			Reason:            reason,
			StartedAt:         session.StartTime,
			EndedAt:           completion.EndedAt,
			PlannedMinutes:    session.Duration,
			RewardMinutes:     completion.Duration,
			ActiveSeconds:     completion.ActiveTime,
			IdleSeconds:       completion.IdleTime,
			Compromised:       completion.Compromised,
			CompromisedByIdle: completion.CompromisedByIdle,
			Critical:          reward.WasCritical,
			SoulInsight:       reward.SoulInsight,
			SoulEmbers:        reward.SoulEmbers,
			BossProgress:      reward.BossProgress,
			BossName:          damage.Boss.Name,
			BossDefeated:      damage.WasDefeated,
			LevelBefore:       levelBefore,
			LevelAfter:        experience.NewLevel,
		})
		if err != nil {
			i.log.Warn("journal note not written", "session_id", session.ID, "error", err)
			out.Warning = joinWarnings(out.Warning, "journal: "+err.Error())
		} else {
			out.JournalPath = path
		}
	}
	return out, nil
}

func (i *Interactor) armLocked(session statedomain.SessionState) {
	i.cancelTimerLocked()
	if i.scheduler == nil {
		return
	}
	i.timerSeq++
	seq, id := i.timerSeq, session.ID
	i.timer = i.scheduler.ScheduleOnce(session.EndTime().Sub(i.svc.Now()), func() {
		i.onTimer(id, seq)
	})
	i.timerFor = id
}

func (i *Interactor) cancelTimerLocked() {
	if i.timerFor == "" {
		return
	}
	if i.scheduler != nil {
		i.scheduler.Cancel(i.timer)
	}
	i.timer = 0
	i.timerFor = ""
	i.timerSeq++
}

// onTimer handles the end timer. Deliveries for a replaced timer or a
// session that no longer exists are ignored; early deliveries re-arm.
func (i *Interactor) onTimer(id string, seq uint64) {
	defer i.flush()
	i.mu.Lock()
	defer i.mu.Unlock()

	if seq != i.timerSeq || id != i.timerFor {
		return
	}
	i.timer = 0
	i.timerFor = ""
	s := i.state.Get()
	if s.Session == nil || s.Session.ID != id {
		return
	}
	now := i.svc.Now()
	if !domain.Overdue(*s.Session, now) {
		i.armLocked(*s.Session)
		return
	}
	out, err := i.endLocked(context.Background(), domain.EndTimer, now)
	if err != nil {
		i.log.Error("timer could not end focus session", "session_id", id, "error", err)
		return
	}
	i.pending = append(i.pending, out)
}

// flush delivers completions queued while mu was held.
func (i *Interactor) flush() {
	i.mu.Lock()
	pending := i.pending
	i.pending = nil
	listeners := append([]func(sessiondto.EndOutput){}, i.listeners...)
	i.mu.Unlock()

	for _, out := range pending {
		for _, fn := range listeners {
			fn(out)
		}
	}
}

func toSessionOutput(s statedomain.SessionState, now time.Time, warning string) sessiondto.SessionOutput {
	progress := domain.Snapshot(s, now)
	return sessiondto.SessionOutput{
		SessionID:       s.ID,
		TaskID:          s.TaskID,
		StartedAt:       s.StartTime,
		EndsAt:          s.EndTime(),
		DurationMinutes: s.Duration,
		IsPaused:        s.IsPaused,
		IsCompromised:   s.IsCompromised,
		IdleSeconds:     progress.IdleTime,
		ActiveSeconds:   progress.ActiveTime,
		Remaining:       progress.Remaining,
		Warning:         warning,
	}
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
