package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"module-monitor/core/supervisor"

	"github.com/spf13/cobra"
)

// workerCmd runs the job consumer without the HTTP server.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background sync worker only",
	Long:  `Consumes sync jobs from the queue and runs the task sweeper. Requires the nats queue driver to share jobs with the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.cfg.Queue.Driver != "nats" {
			rt.logger.Warn("Memory queue only sees jobs published by this process")
		}

		sup := supervisor.New("module-monitor-worker", supervisor.DefaultConfig(), rt.logger)
		sup.Add(rt.newWorker())
		sup.Add(rt.newSweeper())

		if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(workerCmd)
}
