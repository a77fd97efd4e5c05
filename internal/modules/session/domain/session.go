package domain

import (
	"fmt"
	"time"

	statedomain "soulshepherd/internal/modules/state/domain"
	apperrors "soulshepherd/internal/platform/errors"
)

// IdleCompromiseRatio is the share of a session that may be spent idle
// before the session counts as compromised.
const IdleCompromiseRatio = 0.25

type EndReason string

const (
	EndManual    EndReason = "manual"
	EndTimer     EndReason = "timer"
	EndRecovered EndReason = "recovered"
)

func ValidateDuration(minutes int) error {
	if minutes < statedomain.MinSessionMinutes || minutes > statedomain.MaxSessionMinutes {
		return fmt.Errorf("%w: duration must be between %d and %d minutes, got %d",
			apperrors.ErrValidation, statedomain.MinSessionMinutes, statedomain.MaxSessionMinutes, minutes)
	}
	return nil
}

func New(id string, start time.Time, minutes int, taskID string) (statedomain.SessionState, error) {
	if err := ValidateDuration(minutes); err != nil {
		return statedomain.SessionState{}, err
	}
	return statedomain.SessionState{
		ID:        id,
		StartTime: start,
		Duration:  minutes,
		TaskID:    taskID,
		IsActive:  true,
	}, nil
}

// Overdue reports whether the planned end has been reached.
func Overdue(s statedomain.SessionState, now time.Time) bool {
	return !now.Before(s.EndTime())
}

// Pause moves an active session to paused and banks the active time so far.
func Pause(s *statedomain.SessionState, now time.Time) error {
	if !s.IsActive || s.IsPaused {
		return fmt.Errorf("%w: pause requires an active, unpaused session", apperrors.ErrInvalidTransition)
	}
	at := clampToSession(*s, now)
	s.IsPaused = true
	s.PausedAt = at
	s.ActiveTime = nonNegative(at.Sub(s.StartTime).Seconds() - s.IdleTime)
	return nil
}

// Resume adds the time spent paused to IdleTime and returns it.
func Resume(s *statedomain.SessionState, now time.Time) (time.Duration, error) {
	if !s.IsActive || !s.IsPaused {
		return 0, fmt.Errorf("%w: resume requires a paused session", apperrors.ErrInvalidTransition)
	}
	at := clampToSession(*s, now)
	idle := at.Sub(s.PausedAt)
	if idle < 0 {
		idle = 0
	}
	s.IdleTime += idle.Seconds()
	s.IsPaused = false
	s.PausedAt = time.Time{}
	return idle, nil
}

// MarkCompromised sets the sticky compromise flag and reports whether it changed.
func MarkCompromised(s *statedomain.SessionState) (bool, error) {
	if !s.IsActive {
		return false, fmt.Errorf("%w: session is not running", apperrors.ErrInvalidTransition)
	}
	if s.IsCompromised {
		return false, nil
	}
	s.IsCompromised = true
	return true, nil
}

// Progress is a point-in-time view of a running session.
type Progress struct {
	Elapsed    time.Duration
	Remaining  time.Duration
	IdleTime   float64
	ActiveTime float64
}

func Snapshot(s statedomain.SessionState, now time.Time) Progress {
	at := clampToSession(s, now)
	elapsed := at.Sub(s.StartTime)
	idle := openIdle(s, at)
	if idle > elapsed.Seconds() {
		idle = elapsed.Seconds()
	}
	return Progress{
		Elapsed:    elapsed,
		Remaining:  s.EndTime().Sub(at),
		IdleTime:   idle,
		ActiveTime: elapsed.Seconds() - idle,
	}
}

// Completion is the settled timing of a finished session.
type Completion struct {
	EndedAt time.Time
	Elapsed time.Duration
	// Duration is the planned length in minutes. Rewards and the idle rule
	// use it even when the session ends early.
	Duration          float64
	IdleTime          float64
	ActiveTime        float64
	Early             bool
	LateBy            time.Duration
	Compromised       bool
	CompromisedByIdle bool
}

// Complete settles a session at now. Time past the planned end never counts
// toward the session, and an open pause is closed at the settlement point.
func Complete(s statedomain.SessionState, now time.Time) Completion {
	end := s.EndTime()
	c := Completion{Duration: float64(s.Duration)}
	if now.Before(end) {
		c.Early = true
		c.EndedAt = clampToSession(s, now)
	} else {
		c.EndedAt = end
		c.LateBy = now.Sub(end)
	}
	c.Elapsed = c.EndedAt.Sub(s.StartTime)

	elapsed := c.Elapsed.Seconds()
	c.IdleTime = openIdle(s, c.EndedAt)
	if c.IdleTime > elapsed {
		c.IdleTime = elapsed
	}
	c.ActiveTime = elapsed - c.IdleTime

	c.CompromisedByIdle = c.IdleTime > IdleCompromiseRatio*c.Duration*60
	c.Compromised = s.IsCompromised || c.CompromisedByIdle
	return c
}

// openIdle is IdleTime plus any pause still open at at.
func openIdle(s statedomain.SessionState, at time.Time) float64 {
	idle := s.IdleTime
	if s.IsPaused && at.After(s.PausedAt) {
		idle += at.Sub(s.PausedAt).Seconds()
	}
	return idle
}

func clampToSession(s statedomain.SessionState, now time.Time) time.Time {
	if now.Before(s.StartTime) {
		return s.StartTime
	}
	if end := s.EndTime(); now.After(end) {
		return end
	}
	return now
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
