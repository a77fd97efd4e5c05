package service

import (
	"time"

	rewarddomain "soulshepherd/internal/modules/reward/domain"
	"soulshepherd/internal/modules/session/domain"
	statedomain "soulshepherd/internal/modules/state/domain"
	"soulshepherd/internal/platform/clock"
	"soulshepherd/internal/platform/id"
)

type SessionService struct {
	clock  clock.Clock
	idGen  id.Generator
	random rewarddomain.RandomSource
}

func NewSessionService(clock clock.Clock, idGen id.Generator, random rewarddomain.RandomSource) *SessionService {
	return &SessionService{clock: clock, idGen: idGen, random: random}
}

func (s *SessionService) Now() time.Time {
	return s.clock.Now()
}

func (s *SessionService) Start(minutes int, taskID string) (statedomain.SessionState, error) {
	return domain.New(s.idGen.New(), s.clock.Now(), minutes, taskID)
}

// Finish settles session at now and draws its reward.
func (s *SessionService) Finish(session statedomain.SessionState, stats statedomain.Stats, now time.Time) (domain.Completion, rewarddomain.Result) {
	completion := domain.Complete(session, now)
	result := rewarddomain.Calculate(rewarddomain.Input{
		Duration:    completion.Duration,
		ActiveTime:  completion.ActiveTime,
		IdleTime:    completion.IdleTime,
		Compromised: completion.Compromised,
	}, stats, s.random)
	return completion, result
}
