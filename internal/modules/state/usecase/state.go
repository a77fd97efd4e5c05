package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	hclog "github.com/hashicorp/go-hclog"

	"soulshepherd/internal/modules/state/domain"
	"soulshepherd/internal/modules/state/dto"
	statein "soulshepherd/internal/modules/state/port/in"
	stateout "soulshepherd/internal/modules/state/port/out"
	"soulshepherd/internal/platform/clock"
	apperrors "soulshepherd/internal/platform/errors"
)

const (
	DocumentKey  = "game_state"
	backupPrefix = DocumentKey + ".backup."
)

// RetryPolicy bounds store retries: MaxRetries extra attempts, waiting
// InitialInterval and growing by Multiplier between them.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: 100 * time.Millisecond, Multiplier: 2}
}

type Interactor struct {
	store  stateout.KVStore
	bosses domain.ResolveTable
	clock  clock.Clock
	retry  RetryPolicy
	log    hclog.Logger

	mu       sync.Mutex
	current  domain.GameState
	revision uint64

	saveMu    sync.Mutex
	persisted uint64
}

func NewInteractor(store stateout.KVStore, bosses domain.ResolveTable, clk clock.Clock, retry RetryPolicy, logger hclog.Logger) statein.Usecase {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Interactor{
		store:   store,
		bosses:  bosses,
		clock:   clk,
		retry:   retry,
		log:     logger,
		current: domain.Default(bosses, clk.Now()),
	}
}

func (i *Interactor) Load(ctx context.Context) (dto.LoadOutput, error) {
	raw, found, err := i.read(ctx, DocumentKey)
	if err != nil {
		return dto.LoadOutput{}, fmt.Errorf("read game state: %w", err)
	}

	now := i.clock.Now()
	out := dto.LoadOutput{}
	persist := true
	var state domain.GameState
	if !found {
		i.log.Info("no stored game state, starting fresh")
		state = domain.Default(i.bosses, now)
		out.FirstRun = true
	} else {
		decoded, repairs, decodeErr := decode(raw, i.bosses, now)
		switch {
		case decodeErr != nil:
			state = domain.Default(i.bosses, now)
			out.Reset = true
			key := fmt.Sprintf("%s%d", backupPrefix, now.UnixNano())
			if err := i.write(ctx, key, raw); err != nil {
				// Keep the unreadable bytes in place rather than overwrite them unarchived.
				persist = false
				out.Warning = fmt.Sprintf("archive unreadable game state: %v", err)
				i.log.Error("archive unreadable game state failed", "error", err)
			} else {
				out.BackupKey = key
			}
			i.log.Error("stored game state is unreadable, progress reset", "error", decodeErr, "backup_key", out.BackupKey)
		case len(repairs) > 0:
			state = decoded
			out.Repairs = repairs
			i.log.Warn("repaired stored game state", "repairs", repairs)
		default:
			state = decoded
			persist = false
		}
	}

	i.mu.Lock()
	i.current = state
	i.revision++
	rev := i.revision
	i.mu.Unlock()

	out.State = state.Clone()
	if persist {
		if err := i.persist(ctx, rev, state); err != nil {
			out.Warning = err.Error()
		}
	}
	return out, nil
}

func (i *Interactor) Save(ctx context.Context, state domain.GameState) error {
	if err := domain.Validate(state, i.bosses); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}
	next := state.Clone()
	domain.Repair(&next, i.bosses)

	i.mu.Lock()
	i.current = next
	i.revision++
	rev := i.revision
	i.mu.Unlock()
	return i.persist(ctx, rev, next)
}

func (i *Interactor) Get() domain.GameState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current.Clone()
}

func (i *Interactor) Update(ctx context.Context, mutate func(*domain.GameState) error) (domain.GameState, error) {
	i.mu.Lock()
	next := i.current.Clone()
	if err := mutate(&next); err != nil {
		i.mu.Unlock()
		return domain.GameState{}, err
	}
	if err := domain.Validate(next, i.bosses); err != nil {
		i.mu.Unlock()
		return domain.GameState{}, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}
	i.current = next
	i.revision++
	rev := i.revision
	snapshot := next.Clone()
	i.mu.Unlock()

	return snapshot, i.persist(ctx, rev, snapshot)
}

func (i *Interactor) Patch(ctx context.Context, patch dto.Patch) (domain.GameState, error) {
	return i.Update(ctx, func(s *domain.GameState) error {
		incoming := domain.GameState{}
		if patch.Player != nil {
			incoming.Player = *patch.Player
		}
		if patch.Progression != nil {
			incoming.Progression = *patch.Progression
		}
		if patch.Settings != nil {
			incoming.Settings = *patch.Settings
		}
		incoming = incoming.Clone()

		if patch.Player != nil {
			s.Player = incoming.Player
		}
		if patch.Progression != nil {
			s.Progression = incoming.Progression
		}
		if patch.Statistics != nil {
			s.Statistics = *patch.Statistics
		}
		if patch.Settings != nil {
			s.Settings = incoming.Settings
		}
		return nil
	})
}

// persist writes snapshot unless a newer revision already reached the store.
func (i *Interactor) persist(ctx context.Context, rev uint64, snapshot domain.GameState) error {
	payload, err := json.Marshal(domain.Document{
		Version: domain.SchemaVersion,
		SavedAt: i.clock.Now(),
		State:   snapshot,
	})
	if err != nil {
		return fmt.Errorf("%w: encode game state: %w", apperrors.ErrPersistenceFailure, err)
	}

	i.saveMu.Lock()
	defer i.saveMu.Unlock()
	if rev < i.persisted {
		return nil
	}
	if err := i.write(ctx, DocumentKey, payload); err != nil {
		i.log.Warn("game state not saved, keeping in-memory state", "revision", rev, "error", err)
		return fmt.Errorf("%w: save game state: %w", apperrors.ErrPersistenceFailure, err)
	}
	i.persisted = rev
	return nil
}

func (i *Interactor) read(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		found bool
	}
	res, err := backoff.Retry(ctx, func() (result, error) {
		value, found, err := i.store.Get(ctx, key)
		return result{value: value, found: found}, err
	}, i.retryOptions("read", key)...)
	return res.value, res.found, err
}

func (i *Interactor) write(ctx context.Context, key string, value []byte) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, i.store.Set(ctx, key, value)
	}, i.retryOptions("write", key)...)
	return err
}

func (i *Interactor) retryOptions(op, key string) []backoff.RetryOption {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = i.retry.InitialInterval
	policy.Multiplier = i.retry.Multiplier
	policy.RandomizationFactor = 0
	policy.MaxInterval = time.Duration(float64(i.retry.InitialInterval) * pow(i.retry.Multiplier, i.retry.MaxRetries))
	return []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(i.retry.MaxRetries + 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			i.log.Debug("store "+op+" failed, retrying", "key", key, "retry_in", next, "error", err)
		}),
	}
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for range exp {
		out *= base
	}
	return out
}
