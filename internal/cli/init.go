package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gridbook/internal/paths"
	"github.com/mesh-intelligence/gridbook/internal/sheets"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize gridbook configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, and create the default sheet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.settings.ConfigDir, 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			configPath := filepath.Join(a.settings.ConfigDir, paths.ConfigFileName)
			wrote, err := writeConfigIfMissing(configPath, a.settings.Store.DataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(a.settings.Store.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}

			var count int
			err = a.withService(cmd.Context(), func(svc *sheets.Service) error {
				list, err := svc.ListSheets(cmd.Context())
				count = len(list)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s", configPath)
			if wrote {
				fmt.Fprint(out, " (created)")
			}
			fmt.Fprintf(out, "\ndata:   %s\n", a.settings.Store.DataDir)
			fmt.Fprintf(out, "sheets: %d\n", count)
			fmt.Fprintln(out, "gridbook initialized")
			return nil
		},
	}
}
