package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reconcileAll       bool
	reconcileBatchSize int
)

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "Recount every post instead of only the ones marked dirty")
	reconcileCmd.Flags().IntVar(&reconcileBatchSize, "batch-size", 500, "Posts per batch with --all")
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair cached like counts",
	Long: `Without flags, drains the dirty-counter set and recounts those posts, the same
pass the service runs on every sweep interval. With --all, walks every post.`,
	Args: cobra.NoArgs,
	RunE: reconcile,
}

func reconcile(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()

	if reconcileAll {
		visited, err := e.uc.Counters.ReconcileAll(ctx, reconcileBatchSize)
		fmt.Fprintf(cmd.OutOrStdout(), "Recounted %d posts\n", visited)
		return err
	}

	report, err := e.uc.Counters.Sweep(ctx)
	if err != nil {
		return err
	}
	if report.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Another sweep holds the lock, nothing done")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recounted %d dirty posts, %d failed\n", report.Recounted, report.Failed)
	return nil
}
