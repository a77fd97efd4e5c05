package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	idleinadapter "soulshepherd/internal/modules/idle/adapter/in"
	idleusecase "soulshepherd/internal/modules/idle/usecase"
	progressioninadapter "soulshepherd/internal/modules/progression/adapter/in"
	progressionoutadapter "soulshepherd/internal/modules/progression/adapter/out"
	progressionusecase "soulshepherd/internal/modules/progression/usecase"
	sessioninadapter "soulshepherd/internal/modules/session/adapter/in"
	sessiondto "soulshepherd/internal/modules/session/dto"
	sessionoutadapter "soulshepherd/internal/modules/session/adapter/out"
	sessionservice "soulshepherd/internal/modules/session/service"
	sessionusecase "soulshepherd/internal/modules/session/usecase"
	stateinadapter "soulshepherd/internal/modules/state/adapter/in"
	statedto "soulshepherd/internal/modules/state/dto"
	stateoutadapter "soulshepherd/internal/modules/state/adapter/out"
	stateusecase "soulshepherd/internal/modules/state/usecase"
	"soulshepherd/internal/platform/clock"
	"soulshepherd/internal/platform/config"
	"soulshepherd/internal/platform/id"
	"soulshepherd/internal/platform/random"
	"soulshepherd/internal/platform/scheduler"
)

type App struct {
	StateCLI       stateinadapter.CLIHandler
	SessionCLI     sessioninadapter.CLIHandler
	ProgressionCLI progressioninadapter.CLIHandler
	IdleCLI        idleinadapter.CLIHandler
	Signals        *sessioninadapter.SignalHandler
	Activity       *sessioninadapter.ActivityMonitor
	IdleTicker     *idleinadapter.Ticker

	// Loaded describes how the stored game state was read at startup.
	Loaded statedto.LoadOutput
	// Recovered is set when an overdue session was finished at startup.
	Recovered *sessiondto.EndOutput

	scheduler *scheduler.TimeScheduler
	store     *stateoutadapter.SQLiteKVStore
}

func New(ctx context.Context, cfg config.Config, logger hclog.Logger) (*App, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	clk := clock.SystemClock{}
	ids := id.UUID{}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := stateoutadapter.NewSQLiteKVStore(cfg.DBPath, clk)
	if err != nil {
		return nil, fmt.Errorf("new state store: %w", err)
	}

	catalog, err := progressionoutadapter.NewYAMLCatalogSource(cfg.CatalogPath).Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load boss catalog: %w", err)
	}

	stateUC := stateusecase.NewInteractor(store, catalog, clk, stateusecase.RetryPolicy{
		MaxRetries:      cfg.Save.MaxRetries,
		InitialInterval: cfg.Save.InitialInterval,
		Multiplier:      cfg.Save.Multiplier,
	}, logger.Named("state"))
	loaded, err := stateUC.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load game state: %w", err)
	}

	progressionUC := progressionusecase.NewInteractor(stateUC, catalog, logger.Named("progression"))
	idleUC := idleusecase.NewInteractor(stateUC, clk, logger.Named("idle"))

	rnd, err := random.NewSource(cfg.Seed)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed reward source: %w", err)
	}
	sched := scheduler.NewTimeScheduler()
	sessionUC := sessionusecase.NewInteractor(
		sessionservice.NewSessionService(clk, ids, rnd),
		stateUC,
		progressionUC,
		sched,
		sessionoutadapter.NewVaultJournalStore(cfg.JournalDir),
		logger.Named("session"),
	)
	recovered, err := sessionUC.Reconcile(ctx)
	if err != nil {
		sched.Stop()
		_ = store.Close()
		return nil, fmt.Errorf("recover focus session: %w", err)
	}

	signals := sessioninadapter.NewSignalHandler(sessionUC, func() []string {
		return stateUC.Get().Settings.DiscouragedSites
	}, logger.Named("signals"))

	threshold := time.Duration(cfg.Idle.ThresholdSeconds) * time.Second
	if seconds := loaded.State.Settings.IdleThresholdSeconds; seconds > 0 {
		threshold = time.Duration(seconds) * time.Second
	}

	return &App{
		StateCLI:       stateinadapter.NewCLIHandler(stateUC),
		SessionCLI:     sessioninadapter.NewCLIHandler(sessionUC),
		ProgressionCLI: progressioninadapter.NewCLIHandler(progressionUC),
		IdleCLI:        idleinadapter.NewCLIHandler(idleUC),
		Signals:        signals,
		Activity:       sessioninadapter.NewActivityMonitor(signals, sched, clk, threshold, logger.Named("activity")),
		IdleTicker:     idleinadapter.NewTicker(idleUC, sched, cfg.Idle.TickInterval, logger.Named("idle")),
		Loaded:         loaded,
		Recovered:      recovered,
		scheduler:      sched,
		store:          store,
	}, nil
}

// Close stops pending timers and releases the store.
func (a *App) Close() error {
	a.IdleTicker.Stop()
	a.Activity.Stop()
	a.scheduler.Stop()
	return a.store.Close()
}
