package domain

import (
	"fmt"
	"math"
	"strings"
)

// Repair clamps every out-of-range field of s back to its default and
// returns one entry per repaired field. An empty result means s was valid.
func Repair(s *GameState, bosses ResolveTable) []string {
	r := repairs{}

	p := &s.Player
	if p.Level < 1 {
		r.add("player.level", p.Level, 1)
		p.Level = 1
	}
	r.nonNegative("player.soulInsight", &p.SoulInsight)
	if bad(p.SoulInsightToNextLevel) || p.SoulInsightToNextLevel <= 0 {
		target := NextLevelTarget(p.Level)
		r.add("player.soulInsightToNextLevel", p.SoulInsightToNextLevel, target)
		p.SoulInsightToNextLevel = target
	}
	r.nonNegative("player.soulEmbers", &p.SoulEmbers)
	r.nonNegative("player.stats.spirit", &p.Stats.Spirit)
	r.nonNegative("player.stats.harmony", &p.Stats.Harmony)
	r.nonNegative("player.stats.soulflow", &p.Stats.Soulflow)
	r.nonNegativeInt("player.skillPoints", &p.SkillPoints)

	if sess := s.Session; sess != nil {
		switch {
		case sess.StartTime.IsZero():
			r.add("session", "missing startTime", nil)
			s.Session = nil
		case sess.Duration < MinSessionMinutes || sess.Duration > MaxSessionMinutes:
			r.add("session", fmt.Sprintf("duration %d", sess.Duration), nil)
			s.Session = nil
		default:
			r.nonNegative("session.idleTime", &sess.IdleTime)
			r.nonNegative("session.activeTime", &sess.ActiveTime)
			if sess.IsPaused && sess.PausedAt.IsZero() {
				r.add("session.pausedAt", "zero", sess.StartTime)
				sess.PausedAt = sess.StartTime
			}
			if !sess.IsActive {
				r.add("session.isActive", false, true)
				sess.IsActive = true
			}
		}
	}

	prog := &s.Progression
	if bosses != nil && bosses.Len() > 0 {
		if prog.CurrentBossIndex < 0 || prog.CurrentBossIndex >= bosses.Len() {
			initial, _ := bosses.InitialResolve(0)
			r.add("progression.currentBossIndex", prog.CurrentBossIndex, 0)
			prog.CurrentBossIndex = 0
			prog.CurrentBossResolve = initial
		}
		initial, _ := bosses.InitialResolve(prog.CurrentBossIndex)
		switch {
		case bad(prog.CurrentBossResolve):
			r.add("progression.currentBossResolve", prog.CurrentBossResolve, initial)
			prog.CurrentBossResolve = initial
		case prog.CurrentBossResolve < 0:
			r.add("progression.currentBossResolve", prog.CurrentBossResolve, 0)
			prog.CurrentBossResolve = 0
		case prog.CurrentBossResolve > initial:
			r.add("progression.currentBossResolve", prog.CurrentBossResolve, initial)
			prog.CurrentBossResolve = initial
		}
	} else if prog.CurrentBossIndex < 0 {
		r.add("progression.currentBossIndex", prog.CurrentBossIndex, 0)
		prog.CurrentBossIndex = 0
	}
	if prog.DefeatedBosses == nil {
		prog.DefeatedBosses = BossSet{}
	}
	for id := range prog.DefeatedBosses {
		if id < 0 {
			r.add("progression.defeatedBosses", id, nil)
			delete(prog.DefeatedBosses, id)
		}
	}
	r.nonNegative("progression.idleState.accumulatedSouls", &prog.IdleState.AccumulatedSouls)

	st := &s.Statistics
	r.nonNegativeInt("statistics.totalSessions", &st.TotalSessions)
	r.nonNegative("statistics.totalFocusTime", &st.TotalFocusTime)
	r.nonNegativeInt("statistics.bossesDefeated", &st.BossesDefeated)
	r.nonNegative("statistics.totalSoulInsightEarned", &st.TotalSoulInsightEarned)
	r.nonNegative("statistics.totalSoulEmbersEarned", &st.TotalSoulEmbersEarned)
	r.nonNegativeInt("statistics.compromisedSessions", &st.CompromisedSessions)
	r.nonNegativeInt("statistics.criticalHits", &st.CriticalHits)
	r.nonNegativeInt("statistics.currentStreak", &st.CurrentStreak)
	r.nonNegativeInt("statistics.longestStreak", &st.LongestStreak)
	if st.LongestStreak < st.CurrentStreak {
		r.add("statistics.longestStreak", st.LongestStreak, st.CurrentStreak)
		st.LongestStreak = st.CurrentStreak
	}

	set := &s.Settings
	if set.IdleThresholdSeconds < MinIdleThresholdSeconds {
		r.add("settings.idleThresholdSeconds", set.IdleThresholdSeconds, DefaultIdleThresholdSeconds)
		set.IdleThresholdSeconds = DefaultIdleThresholdSeconds
	}
	if set.DefaultSessionMinutes < MinSessionMinutes || set.DefaultSessionMinutes > MaxSessionMinutes {
		r.add("settings.defaultSessionMinutes", set.DefaultSessionMinutes, DefaultSessionMinutes)
		set.DefaultSessionMinutes = DefaultSessionMinutes
	}
	if set.DiscouragedSites == nil {
		set.DiscouragedSites = []string{}
	}

	return r.list
}

// Validate reports the first invariant s violates without modifying it.
func Validate(s GameState, bosses ResolveTable) error {
	scratch := s.Clone()
	if found := Repair(&scratch, bosses); len(found) > 0 {
		return fmt.Errorf("invalid state: %s", strings.Join(found, "; "))
	}
	return nil
}

type repairs struct {
	list []string
}

func (r *repairs) add(field string, from, to any) {
	if to == nil {
		r.list = append(r.list, fmt.Sprintf("%s: dropped %v", field, from))
		return
	}
	r.list = append(r.list, fmt.Sprintf("%s: %v -> %v", field, from, to))
}

func (r *repairs) nonNegative(field string, v *float64) {
	if bad(*v) || *v < 0 {
		r.add(field, *v, 0)
		*v = 0
	}
}

func (r *repairs) nonNegativeInt(field string, v *int) {
	if *v < 0 {
		r.add(field, *v, 0)
		*v = 0
	}
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
