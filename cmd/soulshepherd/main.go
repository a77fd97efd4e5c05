package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"soulshepherd/internal/bootstrap"
	progressiondto "soulshepherd/internal/modules/progression/dto"
	sessiondto "soulshepherd/internal/modules/session/dto"
	statedto "soulshepherd/internal/modules/state/dto"
	"soulshepherd/internal/platform/config"
	"soulshepherd/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:           "soulshepherd",
		Short:         "Focus sessions that guide lost souls",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: <data-dir>/config.yaml)")
	flags.String("data-dir", config.Defaults().DataDir, "directory holding the game database and journal")
	flags.String("log-level", config.Defaults().Log.Level, "log level: trace|debug|info|warn|error")
	flags.Bool("log-json", false, "emit logs as JSON")
	_ = opts.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = opts.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.json", flags.Lookup("log-json"))

	root.AddCommand(newStateCmd(opts))
	root.AddCommand(newSessionCmd(opts))
	root.AddCommand(newProgressCmd(opts))
	root.AddCommand(newIdleCmd(opts))
	return root
}

// withApp builds the application for one command and tears it down after.
func withApp(cmd *cobra.Command, opts *rootOptions, run func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load(opts.v, opts.cfgFile)
	if err != nil {
		return err
	}
	logger, cleanup, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	reportStartup(cmd.ErrOrStderr(), app)
	return run(ctx, app)
}

func reportStartup(w io.Writer, app *bootstrap.App) {
	loaded := app.Loaded
	if loaded.Reset {
		_, _ = fmt.Fprintf(w, "stored game state was unreadable and has been reset (backup: %s)\n", valueOr(loaded.BackupKey, "none"))
	}
	for _, repair := range loaded.Repairs {
		_, _ = fmt.Fprintf(w, "repaired: %s\n", repair)
	}
	printWarning(w, loaded.Warning)
	if app.Recovered != nil {
		_, _ = fmt.Fprintln(w, "an overdue focus session was finished:")
		printEnd(w, *app.Recovered)
	}
}

func newStateCmd(opts *rootOptions) *cobra.Command {
	state := &cobra.Command{Use: "state", Short: "Inspect and edit the game state"}

	state.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the game state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, app *bootstrap.App) error {
				return printJSON(cmd.OutOrStdout(), app.StateCLI.Get())
			})
		},
	})

	state.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Reload the game state from the store and report repairs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.StateCLI.Load(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "first_run=%t reset=%t repairs=%d\n", out.FirstRun, out.Reset, len(out.Repairs))
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	})

	state.AddCommand(&cobra.Command{
		Use:   "save <file>",
		Short: "Replace the game state with a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read state file: %w", err)
			}
			next := statedto.GameState{}
			if err := json.Unmarshal(raw, &next); err != nil {
				return fmt.Errorf("decode state file: %w", err)
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.StateCLI.Save(ctx, next); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "game state saved")
				return nil
			})
		},
	})

	var idleThreshold, defaultMinutes int
	var discouraged []string
	var strict bool
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Update player settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				settings := app.StateCLI.Get().Settings
				if cmd.Flags().Changed("idle-threshold") {
					settings.IdleThresholdSeconds = idleThreshold
				}
				if cmd.Flags().Changed("default-minutes") {
					settings.DefaultSessionMinutes = defaultMinutes
				}
				if cmd.Flags().Changed("discouraged") {
					settings.DiscouragedSites = discouraged
				}
				if cmd.Flags().Changed("strict") {
					settings.StrictMode = strict
				}
				next, err := app.StateCLI.UpdateSettings(ctx, settings)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), next.Settings)
			})
		},
	}
	settingsCmd.Flags().IntVar(&idleThreshold, "idle-threshold", 0, "seconds without input before the user counts as idle")
	settingsCmd.Flags().IntVar(&defaultMinutes, "default-minutes", 0, "session length used when none is given")
	settingsCmd.Flags().StringSliceVar(&discouraged, "discouraged", nil, "hosts that compromise a session when visited")
	settingsCmd.Flags().BoolVar(&strict, "strict", false, "strict mode")
	state.AddCommand(settingsCmd)

	return state
}

func newSessionCmd(opts *rootOptions) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Focus session commands"}

	var minutes int
	var taskID string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Start(ctx, minutes, taskID)
				if err != nil {
					return err
				}
				printStart(cmd.OutOrStdout(), out)
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	}
	startCmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "session length in minutes (5-120, default from settings)")
	startCmd.Flags().StringVar(&taskID, "task", "", "task the session is for")

	var runMinutes int
	var runTask string
	var trackInput bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start a focus session and wait for it to finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				return runSession(ctx, cmd, app, runMinutes, runTask, trackInput)
			})
		},
	}
	runCmd.Flags().IntVarP(&runMinutes, "minutes", "m", 0, "session length in minutes (5-120, default from settings)")
	runCmd.Flags().StringVar(&runTask, "task", "", "task the session is for")
	runCmd.Flags().BoolVar(&trackInput, "track-input", false, "treat each line on stdin as activity and pause the session when it stops")

	session.AddCommand(startCmd, runCmd)
	session.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "End the current focus session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.End(ctx)
				if err != nil {
					return err
				}
				printEnd(cmd.OutOrStdout(), out)
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	})
	session.AddCommand(sessionStepCmd(opts, "pause", "Pause the current focus session", func(ctx context.Context, app *bootstrap.App) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Pause(ctx)
	}))
	session.AddCommand(sessionStepCmd(opts, "resume", "Resume a paused focus session", func(ctx context.Context, app *bootstrap.App) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Resume(ctx)
	}))
	session.AddCommand(sessionStepCmd(opts, "compromise", "Mark the current focus session as compromised", func(ctx context.Context, app *bootstrap.App) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.MarkCompromised(ctx)
	}))
	session.AddCommand(sessionStepCmd(opts, "status", "Show the current focus session", func(ctx context.Context, app *bootstrap.App) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Status(ctx)
	}))

	session.AddCommand(&cobra.Command{
		Use:   "signal <active|idle|locked>",
		Short: "Deliver an idle state signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				return app.Signals.HandleIdleState(ctx, strings.ToLower(args[0]))
			})
		},
	})

	session.AddCommand(&cobra.Command{
		Use:   "visit <url>",
		Short: "Report a visited URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				discouraged, err := app.Signals.Visit(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "discouraged=%t\n", discouraged)
				return nil
			})
		},
	})

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List completed focus sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				entries, err := app.SessionCLI.History(ctx, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
					return nil
				}
				for _, e := range entries {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%.1fm\tinsight=%.2f\tembers=%.2f\tcompromised=%t\n",
						e.EndedAt.Local().Format("2006-01-02 15:04"), e.Reason, valueOr(e.TaskID, "-"),
						e.RewardMinutes, e.SoulInsight, e.SoulEmbers, e.Compromised)
				}
				return nil
			})
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 10, "maximum number of sessions, 0 for all")
	session.AddCommand(historyCmd)

	return session
}

func sessionStepCmd(opts *rootOptions, use, short string, step func(context.Context, *bootstrap.App) (sessiondto.SessionOutput, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := step(ctx, app)
				if err != nil {
					return err
				}
				printSession(cmd.OutOrStdout(), out)
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	}
}

// runSession keeps the process alive until the session timer fires. An
// interrupt ends the session early.
func runSession(ctx context.Context, cmd *cobra.Command, app *bootstrap.App, minutes int, taskID string, trackInput bool) error {
	done := make(chan sessiondto.EndOutput, 1)
	app.SessionCLI.OnComplete(func(out sessiondto.EndOutput) {
		select {
		case done <- out:
		default:
		}
	})

	out, err := app.SessionCLI.Start(ctx, minutes, taskID)
	if err != nil {
		return err
	}
	printStart(cmd.OutOrStdout(), out)
	printWarning(cmd.ErrOrStderr(), out.Warning)
	if trackInput {
		app.Activity.Start()
		go feedActivity(ctx, cmd.InOrStdin(), app)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case end := <-done:
		printEnd(cmd.OutOrStdout(), end)
		printWarning(cmd.ErrOrStderr(), end.Warning)
		return nil
	case <-sigCtx.Done():
		end, err := app.SessionCLI.End(ctx)
		if err != nil {
			return err
		}
		printEnd(cmd.OutOrStdout(), end)
		printWarning(cmd.ErrOrStderr(), end.Warning)
		return nil
	}
}

func feedActivity(ctx context.Context, in io.Reader, app *bootstrap.App) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		app.Activity.Activity(ctx)
	}
}

func newProgressCmd(opts *rootOptions) *cobra.Command {
	progress := &cobra.Command{Use: "progress", Short: "Player level and boss campaign"}

	progress.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the player and the current boss",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				s := app.StateCLI.Get()
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "level=%d insight=%.2f/%.2f embers=%.2f skill_points=%d\n",
					s.Player.Level, s.Player.SoulInsight, s.Player.SoulInsightToNextLevel, s.Player.SoulEmbers, s.Player.SkillPoints)
				_, _ = fmt.Fprintf(w, "spirit=%.2f harmony=%.2f soulflow=%.2f\n",
					s.Player.Stats.Spirit, s.Player.Stats.Harmony, s.Player.Stats.Soulflow)
				boss, err := app.ProgressionCLI.CurrentBoss(ctx)
				if err != nil {
					return err
				}
				printBoss(w, boss)
				_, _ = fmt.Fprintf(w, "sessions=%d streak=%d longest=%d\n",
					s.Statistics.TotalSessions, s.Statistics.CurrentStreak, s.Statistics.LongestStreak)
				return nil
			})
		},
	})

	progress.AddCommand(&cobra.Command{
		Use:   "campaign",
		Short: "List every boss in the campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				bosses, err := app.ProgressionCLI.Campaign(ctx)
				if err != nil {
					return err
				}
				for _, b := range bosses {
					printBoss(cmd.OutOrStdout(), b)
				}
				return nil
			})
		},
	})

	progress.AddCommand(&cobra.Command{
		Use:   "add-xp <amount>",
		Short: "Grant Soul Insight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse amount: %w", err)
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ProgressionCLI.AddExperience(ctx, amount)
				if err != nil {
					return err
				}
				printExperience(cmd.OutOrStdout(), out)
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	})

	progress.AddCommand(&cobra.Command{
		Use:   "damage-boss <amount>",
		Short: "Deal damage to the current boss",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse amount: %w", err)
			}
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ProgressionCLI.DamageBoss(ctx, amount)
				if err != nil {
					return err
				}
				printDamage(cmd.OutOrStdout(), out)
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	})

	return progress
}

func newIdleCmd(opts *rootOptions) *cobra.Command {
	idle := &cobra.Command{Use: "idle", Short: "Idle soul collection"}

	idle.AddCommand(&cobra.Command{
		Use:   "collect",
		Short: "Collect souls gathered since the last collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.IdleCLI.Collect(ctx)
				if err != nil {
					return err
				}
				if out.Suppressed {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "a focus session is running, nothing collected")
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "collected souls=%.2f embers=%.2f over %s\n",
						out.Souls, out.Embers, out.Elapsed.Round(time.Second))
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "total_embers=%.2f accumulated_souls=%.2f\n", out.TotalEmbers, out.AccumulatedSouls)
				printWarning(cmd.ErrOrStderr(), out.Warning)
				return nil
			})
		},
	})

	idle.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Collect idle souls periodically until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *bootstrap.App) error {
				app.IdleTicker.Start()
				sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				<-sigCtx.Done()
				out, err := app.IdleCLI.Collect(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "total_embers=%.2f accumulated_souls=%.2f\n", out.TotalEmbers, out.AccumulatedSouls)
				return nil
			})
		},
	})

	return idle
}

func printStart(w io.Writer, out sessiondto.StartOutput) {
	_, _ = fmt.Fprintf(w, "started %s task=%s minutes=%d ends=%s\n",
		out.SessionID, valueOr(out.TaskID, "-"), out.DurationMinutes, out.EndsAt.Local().Format(time.Kitchen))
	if out.IdleEmbers > 0 {
		_, _ = fmt.Fprintf(w, "collected %.2f idle embers\n", out.IdleEmbers)
	}
}

func printSession(w io.Writer, out sessiondto.SessionOutput) {
	_, _ = fmt.Fprintf(w, "session=%s task=%s paused=%t compromised=%t remaining=%s active=%.0fs idle=%.0fs\n",
		out.SessionID, valueOr(out.TaskID, "-"), out.IsPaused, out.IsCompromised,
		out.Remaining.Round(time.Second), out.ActiveSeconds, out.IdleSeconds)
}

func printEnd(w io.Writer, out sessiondto.EndOutput) {
	r := out.Result
	_, _ = fmt.Fprintf(w, "ended %s (%s) minutes=%.1f active=%.0fs idle=%.0fs\n",
		out.SessionID, out.Reason, out.RewardMinutes, r.ActiveTime, r.IdleTime)
	_, _ = fmt.Fprintf(w, "soul_insight=%.2f soul_embers=%.2f boss_damage=%.2f critical=%t compromised=%t\n",
		r.SoulInsight, r.SoulEmbers, r.BossProgress, r.WasCritical, r.WasCompromised)
	printExperience(w, out.Experience)
	printDamage(w, out.Boss)
	_, _ = fmt.Fprintf(w, "streak=%d\n", out.CurrentStreak)
	if out.JournalPath != "" {
		_, _ = fmt.Fprintf(w, "journal=%s\n", out.JournalPath)
	}
}

func printExperience(w io.Writer, out progressiondto.ExperienceOutput) {
	for _, up := range out.LevelUps {
		_, _ = fmt.Fprintf(w, "level up: %d (threshold %.2f)\n", up.Level, up.Threshold)
	}
	_, _ = fmt.Fprintf(w, "level=%d insight=%.2f/%.2f\n", out.NewLevel, out.SoulInsight, out.SoulInsightToNextLevel)
}

func printDamage(w io.Writer, out progressiondto.DamageOutput) {
	switch {
	case out.CampaignComplete && !out.WasDefeated:
		_, _ = fmt.Fprintln(w, "campaign complete, every soul has been guided")
	case out.WasDefeated:
		_, _ = fmt.Fprintf(w, "%s found peace (overflow %.2f discarded)\n", out.Boss.Name, out.Overflow)
		if out.NextBoss != nil {
			_, _ = fmt.Fprintf(w, "next: %s resolve=%.2f\n", out.NextBoss.Name, out.NextBoss.CurrentResolve)
		} else {
			_, _ = fmt.Fprintln(w, "campaign complete, every soul has been guided")
		}
	default:
		_, _ = fmt.Fprintf(w, "%s resolve=%.2f (-%.2f)\n", out.Boss.Name, out.RemainingResolve, out.Applied)
	}
}

func printBoss(w io.Writer, b progressiondto.BossOutput) {
	status := "locked"
	switch {
	case b.Defeated:
		status = "defeated"
	case b.Unlocked:
		status = "unlocked"
	}
	_, _ = fmt.Fprintf(w, "%d\t%s\tresolve=%.2f/%.2f\tunlock_level=%d\t%s\n",
		b.Index, b.Name, b.CurrentResolve, b.InitialResolve, b.UnlockLevel, status)
}

func printWarning(w io.Writer, warning string) {
	if warning != "" {
		_, _ = fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
