package in

import (
	"context"

	"soulshepherd/internal/modules/progression/dto"
	progressionin "soulshepherd/internal/modules/progression/port/in"
)

type CLIHandler struct {
	usecase progressionin.Usecase
}

func NewCLIHandler(usecase progressionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) AddExperience(ctx context.Context, amount float64) (dto.ExperienceOutput, error) {
	return h.usecase.AddExperience(ctx, amount)
}

func (h CLIHandler) DamageBoss(ctx context.Context, amount float64) (dto.DamageOutput, error) {
	return h.usecase.DamageBoss(ctx, amount)
}

func (h CLIHandler) CurrentBoss(ctx context.Context) (dto.BossOutput, error) {
	return h.usecase.CurrentBoss(ctx)
}

func (h CLIHandler) Campaign(ctx context.Context) ([]dto.BossOutput, error) {
	return h.usecase.Campaign(ctx)
}
