package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// tasksCmd groups background task commands.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage background sync tasks",
}

// tasksSweepCmd runs one sweeper pass.
var tasksSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail stale tasks and purge expired ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.newSweeper().Sweep(cmd.Context())
		if err != nil {
			return err
		}
		rt.logger.Info("Sweep finished",
			zap.Strings("stale", report.Stale),
			zap.Int64("purged", report.Purged),
			zap.Int64("expired", report.Expired),
		)
		fmt.Printf("Stale tasks failed:  %d\n", len(report.Stale))
		fmt.Printf("Tasks purged:        %d\n", report.Purged)
		fmt.Printf("Store keys expired:  %d\n", report.Expired)
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksSweepCmd)
	RootCmd.AddCommand(tasksCmd)
}
