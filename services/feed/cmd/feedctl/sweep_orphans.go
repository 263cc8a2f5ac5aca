package main

import (
	"fmt"

	"blogfeed/pkg/queue"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepOrphansCmd)
	rootCmd.AddCommand(statusCmd)
}

var sweepOrphansCmd = &cobra.Command{
	Use:   "sweep-orphans",
	Short: "Delete comments and likes whose post no longer exists",
	Args:  cobra.NoArgs,
	RunE:  sweepOrphans,
}

func sweepOrphans(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	comments, likes, err := e.uc.Counters.SweepOrphans(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned comments and %d orphaned likes\n", comments, likes)
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending recount tasks",
	Args:  cobra.NoArgs,
	RunE:  status,
}

func status(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if e.backends.QueueClient == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "RabbitMQ unreachable, recount tasks are not queued")
		return nil
	}

	pending, err := e.backends.QueueClient.GetQueueLength(queue.RecountQueueName)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", queue.RecountQueueName, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pending\n", queue.RecountQueueName, pending)
	return nil
}
