package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/logsource"
)

func newSessionsCmd() *cobra.Command {
	var (
		deviceID string
		cached   bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cached {
				cache, cerr := logsource.OpenCache(cfg.Replay.CachePath)
				if cerr != nil {
					return cerr
				}
				defer cache.Close()

				ids, lerr := cache.SessionIDs(cmd.Context())
				if lerr != nil {
					return lerr
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}

			if deviceID == "" {
				deviceID = cfg.Server.DeviceID
			}
			if deviceID == "" {
				return fmt.Errorf("--device or RELIVE_DEVICE_ID is required")
			}

			sessions, err := api.New(cfg.Server.APIBase).Sessions(cmd.Context(), deviceID)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				name := s.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt, name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "device id to list sessions for")
	cmd.Flags().BoolVar(&cached, "cached", false, "list locally cached sessions instead")
	return cmd
}
