package domain

import (
	"time"

	statedomain "soulshepherd/internal/modules/state/domain"
)

const (
	SoulInterval      = 5 * time.Minute
	EmbersPerSoul     = 5.0
	soulflowRateBonus = 0.1
)

type Accrual struct {
	Elapsed time.Duration
	Souls   float64
	Embers  float64
}

// Rate returns Content Souls earned over elapsed for a soulflow stat.
func Rate(elapsed time.Duration, soulflow float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	return (elapsed.Minutes() / SoulInterval.Minutes()) * (1 + soulflow*soulflowRateBonus)
}

// Accrue integrates idle income from the last collection up to now and
// moves the collection clock to now. While a focus session exists nothing
// accrues, so the session interval never earns idle income later. A zero
// collection time only starts the clock. The clock never moves backwards,
// so a now at or before the last collection pays nothing and changes nothing.
func Accrue(s *statedomain.GameState, now time.Time) Accrual {
	idle := &s.Progression.IdleState
	last := idle.LastCollectionTime
	if last.IsZero() {
		idle.LastCollectionTime = now
		return Accrual{}
	}
	if !now.After(last) {
		return Accrual{}
	}
	idle.LastCollectionTime = now
	if s.Session != nil {
		return Accrual{}
	}
	elapsed := now.Sub(last)
	souls := Rate(elapsed, s.Player.Stats.Soulflow)
	embers := souls * EmbersPerSoul
	idle.AccumulatedSouls += souls
	s.Player.SoulEmbers += embers
	return Accrual{Elapsed: elapsed, Souls: souls, Embers: embers}
}
