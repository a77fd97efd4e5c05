package domain

import (
	"fmt"

	statedomain "soulshepherd/internal/modules/state/domain"
	apperrors "soulshepherd/internal/platform/errors"
)

// LevelThreshold returns 100 * level^1.5.
func LevelThreshold(level int) float64 {
	return statedomain.LevelThreshold(level)
}

// LevelUp records one threshold crossed by AddExperience.
type LevelUp struct {
	Level     int
	Threshold float64
}

type ExperienceResult struct {
	NewLevel           int
	LeveledUp          bool
	SkillPointsGranted int
	LevelUps           []LevelUp
}

// AddExperience adds amount to the lifetime Soul Insight and levels the
// player up once per target exceeded, granting one skill point each time.
// Reaching a target exactly does not level up.
func AddExperience(p *statedomain.PlayerState, amount float64) (ExperienceResult, error) {
	if amount < 0 {
		return ExperienceResult{}, fmt.Errorf("%w: experience must be non-negative", apperrors.ErrValidation)
	}
	p.SoulInsight += amount
	res := ExperienceResult{}
	for p.SoulInsight > p.SoulInsightToNextLevel {
		res.LevelUps = append(res.LevelUps, LevelUp{Level: p.Level + 1, Threshold: p.SoulInsightToNextLevel})
		p.Level++
		p.SkillPoints++
		p.SoulInsightToNextLevel = statedomain.NextLevelTarget(p.Level)
	}
	res.NewLevel = p.Level
	res.SkillPointsGranted = len(res.LevelUps)
	res.LeveledUp = res.SkillPointsGranted > 0
	return res, nil
}

type DamageResult struct {
	Boss             Boss
	Applied          float64
	Overflow         float64
	RemainingResolve float64
	WasDefeated      bool
	NextBoss         *Boss
	CampaignComplete bool
}

// DamageBoss lowers the current boss's resolve. A defeat advances to the
// next catalog entry regardless of player level; overflow is discarded.
func DamageBoss(prog *statedomain.ProgressionState, catalog Catalog, amount float64) (DamageResult, error) {
	if amount < 0 {
		return DamageResult{}, fmt.Errorf("%w: boss damage must be non-negative", apperrors.ErrValidation)
	}
	boss, err := catalog.At(prog.CurrentBossIndex)
	if err != nil {
		return DamageResult{}, err
	}
	if prog.DefeatedBosses == nil {
		prog.DefeatedBosses = statedomain.BossSet{}
	}
	res := DamageResult{Boss: boss}
	if prog.DefeatedBosses.Has(boss.ID) && prog.CurrentBossResolve <= 0 {
		res.CampaignComplete = true
		res.Overflow = amount
		return res, nil
	}

	if amount < prog.CurrentBossResolve {
		prog.CurrentBossResolve -= amount
		res.Applied = amount
		res.RemainingResolve = prog.CurrentBossResolve
		return res, nil
	}

	res.Applied = prog.CurrentBossResolve
	res.Overflow = amount - prog.CurrentBossResolve
	res.WasDefeated = true
	prog.CurrentBossResolve = 0
	prog.DefeatedBosses[boss.ID] = struct{}{}

	next, err := catalog.At(prog.CurrentBossIndex + 1)
	if err != nil {
		res.CampaignComplete = true
		return res, nil
	}
	prog.CurrentBossIndex++
	prog.CurrentBossResolve = next.InitialResolve
	res.NextBoss = &next
	return res, nil
}

// CurrentBoss looks up the boss the player is facing.
func CurrentBoss(prog statedomain.ProgressionState, catalog Catalog) (Boss, error) {
	return catalog.At(prog.CurrentBossIndex)
}

// Unlocked reports whether the boss is shown as unlocked for a player level.
func Unlocked(b Boss, level int) bool {
	return level >= b.UnlockLevel
}
