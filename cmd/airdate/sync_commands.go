package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSyncCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tracked.RefreshLists(cmd.Context()); err != nil {
				a.logger.WithError(err).Warn("List refresh failed, syncing with stored snapshots")
			}
			report, err := a.sync.Sync(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Refetch every tracked item")
	return cmd
}

func newRebucketCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebucket",
		Short: "Re-file the cached index under the current settings without fetching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			settings, err := a.settings.Get()
			if err != nil {
				return fmt.Errorf("failed to read settings: %w", err)
			}
			if err := a.sync.Rebucket(settings); err != nil {
				return err
			}
			return printJSON(a.sync.Status())
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
