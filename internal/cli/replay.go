package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/config"
	"github.com/gosuda/relive/internal/engine"
	"github.com/gosuda/relive/internal/logsource"
	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/replay"
	"github.com/gosuda/relive/internal/router"
	"github.com/gosuda/relive/internal/session"
)

func newReplayCmd() *cobra.Command {
	var (
		from        string
		save        bool
		fastForward bool
		delay       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Replay a stored session event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("delay") {
				delay = cfg.Replay.Delay
			}
			return runReplay(cmd.Context(), cfg, args[0], from, save, fastForward, delay)
		},
	}

	cmd.Flags().StringVar(&from, "from", "rest", "log source: rest, db, or cache")
	cmd.Flags().BoolVar(&save, "save", false, "save the fetched log to the local cache for offline replay")
	cmd.Flags().BoolVar(&fastForward, "fast-forward", false, "skip pacing and visual side effects")
	cmd.Flags().DurationVar(&delay, "delay", replay.DefaultDelay, "inter-event delay")
	return cmd
}

func runReplay(ctx context.Context, cfg *config.Config, sessionID, from string, save, fastForward bool, delay time.Duration) error {
	source, closeSource, err := openSource(ctx, cfg, from)
	if err != nil {
		return err
	}
	defer closeSource()

	lg, err := source.Load(ctx, sessionID)
	if err != nil {
		// A failed fetch leaves the session unloaded; nothing to roll back.
		return fmt.Errorf("loading session log: %w", err)
	}

	if save && from != "cache" {
		cache, cerr := logsource.OpenCache(cfg.Replay.CachePath)
		if cerr != nil {
			log.Warn().Err(cerr).Msg("cli: cache unavailable, skipping save")
		} else {
			if serr := cache.Save(ctx, lg); serr != nil {
				log.Warn().Err(serr).Msg("cli: failed to cache session log")
			}
			_ = cache.Close()
		}
	}

	store := session.NewStore()
	terminal := router.NewTerminal()
	rt := router.New(store, terminal, cfg.Router.Debounce)
	defer rt.Close()

	eng := engine.New(store, rt, notify.Log{})
	scheduler := replay.NewScheduler(eng, store)
	scheduler.OnFinish(func() {
		fmt.Println("--- replay complete ---")
	})

	if fastForward {
		scheduler.FastForward()
	}

	if err := scheduler.Play(ctx, lg, delay); err != nil {
		return err
	}

	final := store.Snapshot()
	printTimeline(func(format string, a ...any) { fmt.Printf(format, a...) }, final)
	if len(terminal.Lines()) > 0 {
		fmt.Println("--- terminal ---")
		for _, line := range terminal.Lines() {
			fmt.Println(line)
		}
	}
	return nil
}

func openSource(ctx context.Context, cfg *config.Config, from string) (logsource.Source, func(), error) {
	switch from {
	case "rest":
		return logsource.NewREST(api.New(cfg.Server.APIBase)), func() {}, nil
	case "db":
		if cfg.DB.DSN == "" {
			return nil, nil, fmt.Errorf("--from db requires RELIVE_DB_DSN")
		}
		pg, err := logsource.NewPostgres(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "cache":
		cache, err := logsource.OpenCache(cfg.Replay.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log source %q (want rest, db, or cache)", from)
	}
}
