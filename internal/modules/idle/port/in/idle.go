package in

import (
	"context"
	"time"

	"soulshepherd/internal/modules/idle/dto"
)

type Usecase interface {
	Collect(ctx context.Context, now time.Time) (dto.CollectOutput, error)
	CollectNow(ctx context.Context) (dto.CollectOutput, error)
}
