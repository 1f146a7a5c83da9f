package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/config"
)

func newSettingsCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the server settings, or set the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := api.New(cfg.Server.APIBase)
			if model != "" {
				return setModel(cmd.Context(), client, config.DefaultSettingsPath(), model)
			}
			return showSettings(cmd.Context(), client, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model to select, persisted locally and pushed to the server")
	return cmd
}

func showSettings(ctx context.Context, client *api.Client, out io.Writer) error {
	settings, err := client.Settings(ctx)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %v\n", k, settings[k])
	}
	return nil
}

// setModel records the model choice in the local tool-settings file and
// pushes the same document to the server.
func setModel(ctx context.Context, client *api.Client, settingsPath, model string) error {
	settings, err := config.LoadToolSettings(settingsPath)
	if err != nil {
		return err
	}
	settings.Model = model
	if err := config.SaveToolSettings(settingsPath, settings); err != nil {
		return err
	}

	doc := map[string]any{"model": model}
	if len(settings.ToolArgs) > 0 {
		doc["tool_args"] = settings.ToolArgs
	}
	return client.SaveSettings(ctx, doc)
}
