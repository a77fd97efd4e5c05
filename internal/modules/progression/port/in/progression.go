package in

import (
	"context"

	"soulshepherd/internal/modules/progression/domain"
	"soulshepherd/internal/modules/progression/dto"
)

type Usecase interface {
	AddExperience(ctx context.Context, amount float64) (dto.ExperienceOutput, error)
	DamageBoss(ctx context.Context, amount float64) (dto.DamageOutput, error)
	CurrentBoss(ctx context.Context) (dto.BossOutput, error)
	Campaign(ctx context.Context) ([]dto.BossOutput, error)
	Catalog() domain.Catalog
}
