package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/relive/internal/config"
	"github.com/gosuda/relive/internal/engine"
	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/protocol"
	"github.com/gosuda/relive/internal/router"
	"github.com/gosuda/relive/internal/session"
	"github.com/gosuda/relive/internal/transport"
)

func newConnectCmd() *cobra.Command {
	var (
		useRedis  bool
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a live session against the agent server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runConnect(cmd.Context(), cfg, useRedis, sessionID)
		},
	}

	cmd.Flags().BoolVar(&useRedis, "redis", false, "observe the session through the Redis agent channel (read-only)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required with --redis)")
	return cmd
}

func runConnect(ctx context.Context, cfg *config.Config, useRedis bool, sessionID string) error {
	store := session.NewStore()
	notifier := notify.NewRegistry()
	notifier.Register(notify.Func(func(level notify.Level, message string) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
	}))

	terminal := router.NewTerminal()
	rt := router.New(store, terminal, cfg.Router.Debounce)
	defer rt.Close()

	eng := engine.New(store, rt, notifier)

	var tp transport.Transport
	if useRedis {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("--redis requires RELIVE_REDIS_ADDR")
		}
		if sessionID == "" {
			return fmt.Errorf("--redis requires --session")
		}
		tp = transport.NewRedisFeed(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sessionID, store, notifier)
	} else {
		tp = transport.NewWebSocket(cfg.Server.WSEndpoint, cfg.Server.Token, cfg.Server.DeviceID, store, notifier)
	}
	defer tp.Close()

	events, err := tp.Connect(ctx)
	if err != nil {
		return err
	}

	// Print messages as the engine appends them.
	snapshots, unsubscribe := store.Subscribe()
	defer unsubscribe()
	go printNewMessages(snapshots)

	if !useRedis {
		settings, serr := config.LoadToolSettings(config.DefaultSettingsPath())
		if serr != nil {
			log.Warn().Err(serr).Msg("cli: tool settings unavailable, using defaults")
		}
		model := settings.Model
		if model == "" {
			model = cfg.Model
		}
		store.Apply(session.SetSelectedModel{Model: model}, session.SetToolSettings{Settings: settings.ToolArgs})
		if serr = tp.Send(ctx, protocol.InitAgentRequest(model, settings.ToolArgs)); serr != nil {
			return serr
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			eng.HandleEvent(ev)
		}
	}()

	if !useRedis {
		go keepalive(ctx, tp, keepaliveInterval)
	}
	go readInput(ctx, tp, store, os.Stdin)

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

// keepaliveInterval paces the ping probes on a live socket.
const keepaliveInterval = 30 * time.Second

// keepalive probes the server periodically. A failed ping is not
// retried: the socket surfaces its own fault and flips the connection
// state.
func keepalive(ctx context.Context, tp transport.Transport, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = tp.Send(ctx, protocol.PingRequest())
		}
	}
}

// readInput forwards input lines as queries. "/cancel" interrupts the
// running turn, "/enhance <text>" asks the server to rewrite a draft,
// "/edit <text>" rewrites the most recent user query, "/reset" clears
// the session; exit by closing stdin or ctrl-c.
func readInput(ctx context.Context, tp transport.Transport, store *session.Store, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		state := store.Snapshot()

		switch {
		case line == "/reset":
			store.Apply(session.Reset{})

		case line == "/cancel":
			if err := tp.Send(ctx, protocol.CancelRequest()); err == nil {
				store.Apply(session.SetStopped{Stopped: true}, session.SetLoading{Loading: false})
			}

		case strings.HasPrefix(line, "/enhance "):
			text := strings.TrimPrefix(line, "/enhance ")
			req := protocol.EnhancePromptRequest(state.SelectedModel, text, state.UploadedFiles, state.ToolSettings)
			if err := tp.Send(ctx, req); err == nil {
				// The enhanced draft arrives as a prompt_generated event.
				store.Apply(session.SetGeneratingPrompt{Generating: true}, session.SetDraftText{Text: text})
			}

		case strings.HasPrefix(line, "/edit "):
			text := strings.TrimPrefix(line, "/edit ")
			if err := tp.Send(ctx, protocol.EditQueryRequest(text, state.UploadedFiles)); err == nil {
				if last := lastUserMessage(state); last != "" {
					store.Apply(session.PatchMessageText{MessageID: last, Content: text, Files: state.UploadedFiles})
				}
			}

		default:
			_ = tp.Send(ctx, protocol.QueryRequest(line, false, state.UploadedFiles))
		}
	}
}

func lastUserMessage(state session.AppState) string {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == session.RoleUser {
			return state.Messages[i].ID
		}
	}
	return ""
}

func printNewMessages(snapshots <-chan session.AppState) {
	printed := 0
	for snap := range snapshots {
		for ; printed < len(snap.Messages); printed++ {
			msg := snap.Messages[printed]
			if msg.IsHidden {
				continue
			}
			printTimeline(func(format string, a ...any) {
				fmt.Printf(format, a...)
			}, session.AppState{Messages: []session.Message{msg}})
		}
	}
}
