package in

import (
	"context"

	sessiondto "soulshepherd/internal/modules/session/dto"
	sessionin "soulshepherd/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Start(ctx context.Context, minutes int, taskID string) (sessiondto.StartOutput, error) {
	return h.usecase.Start(ctx, sessiondto.StartInput{DurationMinutes: minutes, TaskID: taskID})
}

func (h CLIHandler) End(ctx context.Context) (sessiondto.EndOutput, error) {
	return h.usecase.End(ctx)
}

func (h CLIHandler) Pause(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.Pause(ctx)
}

func (h CLIHandler) Resume(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.Resume(ctx)
}

func (h CLIHandler) MarkCompromised(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.MarkCompromised(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.GetCurrent(ctx)
}

func (h CLIHandler) History(ctx context.Context, limit int) ([]sessiondto.JournalEntry, error) {
	return h.usecase.History(ctx, limit)
}

func (h CLIHandler) Reconcile(ctx context.Context) (*sessiondto.EndOutput, error) {
	return h.usecase.Reconcile(ctx)
}

func (h CLIHandler) OnComplete(fn func(sessiondto.EndOutput)) {
	h.usecase.OnComplete(fn)
}
