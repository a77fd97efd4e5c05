package in

import (
	"context"

	"soulshepherd/internal/modules/idle/dto"
	idlein "soulshepherd/internal/modules/idle/port/in"
)

type CLIHandler struct {
	usecase idlein.Usecase
}

func NewCLIHandler(usecase idlein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Collect(ctx context.Context) (dto.CollectOutput, error) {
	return h.usecase.CollectNow(ctx)
}
