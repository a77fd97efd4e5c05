package in

import (
	"context"

	"soulshepherd/internal/modules/state/dto"
	statein "soulshepherd/internal/modules/state/port/in"
)

type CLIHandler struct {
	usecase statein.Usecase
}

func NewCLIHandler(usecase statein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Load(ctx context.Context) (dto.LoadOutput, error) {
	return h.usecase.Load(ctx)
}

func (h CLIHandler) Get() dto.GameState {
	return h.usecase.Get()
}

func (h CLIHandler) Save(ctx context.Context, state dto.GameState) error {
	return h.usecase.Save(ctx, state)
}

func (h CLIHandler) UpdateSettings(ctx context.Context, settings dto.Settings) (dto.GameState, error) {
	return h.usecase.Patch(ctx, dto.Patch{Settings: &settings})
}
