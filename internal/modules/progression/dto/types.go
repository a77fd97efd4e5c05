package dto

import (
	"soulshepherd/internal/modules/progression/domain"
	statedomain "soulshepherd/internal/modules/state/domain"
)

type LevelUpOutput struct {
	Level     int
	Threshold float64
}

type ExperienceOutput struct {
	NewLevel               int
	LeveledUp              bool
	SkillPointsGranted     int
	LevelUps               []LevelUpOutput
	SoulInsight            float64
	SoulInsightToNextLevel float64
	Warning                string
}

type BossOutput struct {
	Index          int
	ID             int
	Name           string
	Backstory      string
	InitialResolve float64
	CurrentResolve float64
	UnlockLevel    int
	Unlocked       bool
	Defeated       bool
}

type DamageOutput struct {
	Boss             BossOutput
	Applied          float64
	Overflow         float64
	RemainingResolve float64
	WasDefeated      bool
	NextBoss         *BossOutput
	CampaignComplete bool
	Warning          string
}

// FromBoss maps a catalog entry to its presentation for a player level.
func FromBoss(index int, b domain.Boss, prog statedomain.ProgressionState, level int) BossOutput {
	return BossOutput{
		Index:          index,
		ID:             b.ID,
		Name:           b.Name,
		Backstory:      b.Backstory,
		InitialResolve: b.InitialResolve,
		UnlockLevel:    b.UnlockLevel,
		Unlocked:       domain.Unlocked(b, level),
		Defeated:       prog.DefeatedBosses.Has(b.ID),
	}
}

func FromDamage(res domain.DamageResult, prog statedomain.ProgressionState, level int, warning string) DamageOutput {
	out := DamageOutput{
		Boss:             FromBoss(prog.CurrentBossIndex, res.Boss, prog, level),
		Applied:          res.Applied,
		Overflow:         res.Overflow,
		RemainingResolve: res.RemainingResolve,
		WasDefeated:      res.WasDefeated,
		CampaignComplete: res.CampaignComplete,
		Warning:          warning,
	}
	if res.NextBoss != nil {
		out.Boss.Index = prog.CurrentBossIndex - 1
		next := FromBoss(prog.CurrentBossIndex, *res.NextBoss, prog, level)
		next.CurrentResolve = prog.CurrentBossResolve
		out.NextBoss = &next
	}
	out.Boss.CurrentResolve = res.RemainingResolve
	return out
}

func FromLevelUps(ups []domain.LevelUp) []LevelUpOutput {
	out := make([]LevelUpOutput, 0, len(ups))
	for _, up := range ups {
		out = append(out, LevelUpOutput{Level: up.Level, Threshold: up.Threshold})
	}
	return out
}
