package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print a device-sync payload of the watchlist, lists and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			payload, err := a.transfer.Export()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <payload>",
		Short: "Apply a device-sync payload and sync the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// the triggered background pass would die with the process
			a.tracked.OnChange(nil)
			report, err := a.transfer.Import(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			if _, err := a.sync.Sync(cmd.Context(), false); err != nil {
				a.logger.WithError(err).Warn("Sync after import failed")
			}
			return printJSON(report)
		},
	}
}
