package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recountCmd)
}

var recountCmd = &cobra.Command{
	Use:   "recount <postID>",
	Short: "Recompute one post's like count from its likes",
	Args:  cobra.ExactArgs(1),
	RunE:  recount,
}

func recount(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	count, err := e.uc.Counters.Recount(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to recount %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Post %s now has %d likes\n", args[0], count)
	return nil
}
