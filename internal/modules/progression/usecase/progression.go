package usecase

import (
	"context"
	"errors"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"soulshepherd/internal/modules/progression/domain"
	"soulshepherd/internal/modules/progression/dto"
	progressionin "soulshepherd/internal/modules/progression/port/in"
	statedomain "soulshepherd/internal/modules/state/domain"
	statein "soulshepherd/internal/modules/state/port/in"
	apperrors "soulshepherd/internal/platform/errors"
)

type Interactor struct {
	state   statein.Usecase
	catalog domain.Catalog
	log     hclog.Logger
}

func NewInteractor(state statein.Usecase, catalog domain.Catalog, logger hclog.Logger) progressionin.Usecase {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Interactor{state: state, catalog: catalog, log: logger}
}

func (i *Interactor) Catalog() domain.Catalog {
	return i.catalog
}

func (i *Interactor) AddExperience(ctx context.Context, amount float64) (dto.ExperienceOutput, error) {
	if amount < 0 {
		return dto.ExperienceOutput{}, fmt.Errorf("%w: experience must be non-negative", apperrors.ErrValidation)
	}
	var res domain.ExperienceResult
	next, err := i.state.Update(ctx, func(s *statedomain.GameState) error {
		var applyErr error
		res, applyErr = domain.AddExperience(&s.Player, amount)
		return applyErr
	})
	warning, err := apperrors.Warning(err)
	if err != nil {
		return dto.ExperienceOutput{}, err
	}
	if res.LeveledUp {
		i.log.Info("level up", "level", res.NewLevel, "skill_points", res.SkillPointsGranted)
	}
	return dto.ExperienceOutput{
		NewLevel:               res.NewLevel,
		LeveledUp:              res.LeveledUp,
		SkillPointsGranted:     res.SkillPointsGranted,
		LevelUps:               dto.FromLevelUps(res.LevelUps),
		SoulInsight:            next.Player.SoulInsight,
		SoulInsightToNextLevel: next.Player.SoulInsightToNextLevel,
		Warning:                warning,
	}, nil
}

func (i *Interactor) DamageBoss(ctx context.Context, amount float64) (dto.DamageOutput, error) {
	if amount < 0 {
		return dto.DamageOutput{}, fmt.Errorf("%w: boss damage must be non-negative", apperrors.ErrValidation)
	}
	var res domain.DamageResult
	var level int
	next, err := i.state.Update(ctx, func(s *statedomain.GameState) error {
		var applyErr error
		res, applyErr = domain.DamageBoss(&s.Progression, i.catalog, amount)
		level = s.Player.Level
		return applyErr
	})
	warning, err := apperrors.Warning(err)
	if err != nil {
		i.logCatalogError(err)
		return dto.DamageOutput{}, err
	}
	if res.WasDefeated {
		i.log.Info("boss defeated", "boss", res.Boss.Name, "overflow", res.Overflow)
	}
	return dto.FromDamage(res, next.Progression, level, warning), nil
}

func (i *Interactor) CurrentBoss(_ context.Context) (dto.BossOutput, error) {
	s := i.state.Get()
	boss, err := domain.CurrentBoss(s.Progression, i.catalog)
	if err != nil {
		i.logCatalogError(err)
		return dto.BossOutput{}, err
	}
	out := dto.FromBoss(s.Progression.CurrentBossIndex, boss, s.Progression, s.Player.Level)
	out.CurrentResolve = s.Progression.CurrentBossResolve
	return out, nil
}

func (i *Interactor) Campaign(_ context.Context) ([]dto.BossOutput, error) {
	s := i.state.Get()
	bosses := i.catalog.Bosses()
	out := make([]dto.BossOutput, 0, len(bosses))
	for idx, b := range bosses {
		entry := dto.FromBoss(idx, b, s.Progression, s.Player.Level)
		switch {
		case idx == s.Progression.CurrentBossIndex:
			entry.CurrentResolve = s.Progression.CurrentBossResolve
		case idx > s.Progression.CurrentBossIndex:
			entry.CurrentResolve = b.InitialResolve
		}
		out = append(out, entry)
	}
	return out, nil
}

func (i *Interactor) logCatalogError(err error) {
	if errors.Is(err, apperrors.ErrCatalogIndex) {
		i.log.Error("boss catalog lookup failed, state may be corrupt", "error", err)
	}
}
