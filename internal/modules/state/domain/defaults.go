package domain

import (
	"math"
	"time"
)

const (
	MinSessionMinutes = 5
	MaxSessionMinutes = 120

	DefaultIdleThresholdSeconds = 120
	MinIdleThresholdSeconds     = 15
	DefaultSessionMinutes       = 25
	FirstLevelSoulInsight       = 100.0
)

// ResolveTable exposes the boss catalog bounds state validation relies on.
type ResolveTable interface {
	Len() int
	InitialResolve(index int) (float64, bool)
}

// LevelThreshold is the accumulated Soul Insight that marks level.
func LevelThreshold(level int) float64 {
	return 100 * math.Pow(float64(level), 1.5)
}

// NextLevelTarget is the SoulInsightToNextLevel a player at level carries.
func NextLevelTarget(level int) float64 {
	if level <= 1 {
		return FirstLevelSoulInsight
	}
	return LevelThreshold(level + 1)
}

// Default returns the first-run state with the idle clock started at now.
func Default(bosses ResolveTable, now time.Time) GameState {
	resolve := 0.0
	if bosses != nil {
		if r, ok := bosses.InitialResolve(0); ok {
			resolve = r
		}
	}
	return GameState{
		Player: PlayerState{
			Level:                  1,
			SoulInsightToNextLevel: NextLevelTarget(1),
		},
		Progression: ProgressionState{
			CurrentBossResolve: resolve,
			DefeatedBosses:     BossSet{},
			IdleState:          IdleState{LastCollectionTime: now},
		},
		Settings: DefaultSettings(),
	}
}

func DefaultSettings() Settings {
	return Settings{
		IdleThresholdSeconds:  DefaultIdleThresholdSeconds,
		DefaultSessionMinutes: DefaultSessionMinutes,
		DiscouragedSites:      []string{},
	}
}
