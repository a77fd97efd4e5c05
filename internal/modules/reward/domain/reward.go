// Package domain holds the reward formulas applied when a focus session
// completes. Every function is pure; the critical-hit draw is the only
// source of variation and is injected by the caller.
package domain

import statedomain "soulshepherd/internal/modules/state/domain"

const (
	CompromiseMultiplier = 0.7
	CriticalMultiplier   = 1.5

	soulInsightPerMinute   = 10
	soulEmbersPerMinute    = 2
	spiritInsightBonus     = 0.1
	soulflowEmberBonus     = 0.05
	bossDamagePerSpiritMin = 0.5
)

// RandomSource yields uniform draws in [0, 1).
type RandomSource interface {
	Float64() float64
}

// Input describes a finished session. Inputs are validated upstream:
// Duration is positive minutes and stats are non-negative.
type Input struct {
	Duration    float64
	ActiveTime  float64
	IdleTime    float64
	Compromised bool
}

type Result struct {
	SoulInsight    float64
	SoulEmbers     float64
	BossProgress   float64
	WasCritical    bool
	WasCompromised bool
}

// ApplyCompromisePenalty is the single definition of the compromised-session penalty.
func ApplyCompromisePenalty(value float64) float64 {
	return value * CompromiseMultiplier
}

// Calculate draws once from rnd and evaluates the reward formulas.
func Calculate(in Input, stats statedomain.Stats, rnd RandomSource) Result {
	return CalculateWithDraw(in, stats, rnd.Float64())
}

// CalculateWithDraw evaluates the reward formulas for a fixed critical-hit
// draw. Harmony is the critical probability, so harmony above 1 always crits.
// Critical hits scale Soul Insight and Soul Embers but never boss damage.
func CalculateWithDraw(in Input, stats statedomain.Stats, draw float64) Result {
	baseInsight := in.Duration * soulInsightPerMinute * (1 + stats.Spirit*spiritInsightBonus)
	baseEmbers := in.Duration * soulEmbersPerMinute * (1 + stats.Soulflow*soulflowEmberBonus)
	bossDamage := stats.Spirit * in.Duration * bossDamagePerSpiritMin

	critical := draw < stats.Harmony
	crit := 1.0
	if critical {
		crit = CriticalMultiplier
	}

	res := Result{
		SoulInsight:    baseInsight * crit,
		SoulEmbers:     baseEmbers * crit,
		BossProgress:   bossDamage,
		WasCritical:    critical,
		WasCompromised: in.Compromised,
	}
	if in.Compromised {
		res.SoulInsight = ApplyCompromisePenalty(res.SoulInsight)
		res.SoulEmbers = ApplyCompromisePenalty(res.SoulEmbers)
		res.BossProgress = ApplyCompromisePenalty(res.BossProgress)
	}
	return res
}
