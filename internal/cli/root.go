// Package cli wires the engine, transports, and log sources into the
// relive command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gosuda/relive/internal/config"
	"github.com/gosuda/relive/internal/session"
)

// NewRootCmd builds the relive command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "relive",
		Short: "Reconstruct agent sessions from live streams or stored event logs",
		Long: `relive connects to an agent server over a websocket (live mode) or
replays a stored event log (replay mode), reconciling the raw event
stream into one ordered conversation and tool-execution timeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newConnectCmd(),
		newReplayCmd(),
		newUploadCmd(),
		newSessionsCmd(),
		newSettingsCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// printTimeline renders the reconciled conversation, one line per
// message, tool actions summarized inline.
func printTimeline(out func(format string, a ...any), state session.AppState) {
	for _, msg := range state.Messages {
		switch {
		case msg.Action != nil:
			status := "…"
			if msg.Action.Data.IsResult {
				status = "done"
			}
			out("[%s] %s (%s)\n", msg.Role, msg.Action.Type, status)
		case msg.Content != "":
			out("[%s] %s\n", msg.Role, msg.Content)
		}
	}
}
