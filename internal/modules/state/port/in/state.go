package in

import (
	"context"

	"soulshepherd/internal/modules/state/domain"
	"soulshepherd/internal/modules/state/dto"
)

// Usecase owns the canonical GameState. Errors matching
// apperrors.ErrPersistenceFailure are warnings: the change was applied in
// memory but could not be written durably.
type Usecase interface {
	Load(ctx context.Context) (dto.LoadOutput, error)
	Save(ctx context.Context, state domain.GameState) error
	Get() domain.GameState
	Update(ctx context.Context, mutate func(*domain.GameState) error) (domain.GameState, error)
	Patch(ctx context.Context, patch dto.Patch) (domain.GameState, error)
}
