package usecase

import (
	"context"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"soulshepherd/internal/modules/idle/domain"
	"soulshepherd/internal/modules/idle/dto"
	idlein "soulshepherd/internal/modules/idle/port/in"
	statedomain "soulshepherd/internal/modules/state/domain"
	statein "soulshepherd/internal/modules/state/port/in"
	"soulshepherd/internal/platform/clock"
	apperrors "soulshepherd/internal/platform/errors"
)

type Interactor struct {
	state statein.Usecase
	clock clock.Clock
	log   hclog.Logger
}

func NewInteractor(state statein.Usecase, clk clock.Clock, logger hclog.Logger) idlein.Usecase {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Interactor{state: state, clock: clk, log: logger}
}

func (i *Interactor) CollectNow(ctx context.Context) (dto.CollectOutput, error) {
	return i.Collect(ctx, i.clock.Now())
}

func (i *Interactor) Collect(ctx context.Context, now time.Time) (dto.CollectOutput, error) {
	var accrual domain.Accrual
	suppressed := false
	next, err := i.state.Update(ctx, func(s *statedomain.GameState) error {
		suppressed = s.Session != nil
		accrual = domain.Accrue(s, now)
		return nil
	})
	warning, err := apperrors.Warning(err)
	if err != nil {
		return dto.CollectOutput{}, err
	}
	if accrual.Souls > 0 {
		i.log.Debug("collected idle souls", "elapsed", accrual.Elapsed, "souls", accrual.Souls, "embers", accrual.Embers)
	}
	return dto.CollectOutput{
		Elapsed:          accrual.Elapsed,
		Souls:            accrual.Souls,
		Embers:           accrual.Embers,
		TotalEmbers:      next.Player.SoulEmbers,
		AccumulatedSouls: next.Progression.IdleState.AccumulatedSouls,
		Suppressed:       suppressed,
		Warning:          warning,
	}, nil
}
