package in

import (
	"context"

	"soulshepherd/internal/modules/session/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.StartOutput, error)
	Pause(ctx context.Context) (dto.SessionOutput, error)
	Resume(ctx context.Context) (dto.SessionOutput, error)
	MarkCompromised(ctx context.Context) (dto.SessionOutput, error)
	End(ctx context.Context) (dto.EndOutput, error)
	GetCurrent(ctx context.Context) (dto.SessionOutput, error)
	// Reconcile finishes an overdue persisted session and re-arms the end
	// timer of a running one. It returns the synthesized end, if any.
	Reconcile(ctx context.Context) (*dto.EndOutput, error)
	History(ctx context.Context, limit int) ([]dto.JournalEntry, error)
	// OnComplete registers fn for sessions ended by their timer or by recovery.
	OnComplete(fn func(dto.EndOutput))
}
