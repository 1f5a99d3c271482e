package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varoOP/niterudb/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export <query>...",
	Short: "Export merged records to a sqlite snapshot",
	Long: `Export runs each query through the full fan-out and merge pipeline
and writes the consolidated records into a sqlite catalog, optionally
alongside a JSON snapshot. If a Discord webhook is configured, the run
outcome is reported there.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		dir, _ := cmd.Flags().GetString("dir")
		jsonPath, _ := cmd.Flags().GetString("json-snapshot")

		if err := application.Export(context.Background(), args, dir, jsonPath); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("dir", ".", "directory for the sqlite snapshot")
	exportCmd.Flags().String("json-snapshot", "", "also write records to this JSON file")
	rootCmd.AddCommand(exportCmd)
}
