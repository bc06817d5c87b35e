package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [element-id]",
	Short: "List the stored state transitions for an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		elementID := args[0]

		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		trail, err := history.NewPGStore(pool).List(ctx, elementID)
		if err != nil {
			return err
		}
		if len(trail) == 0 {
			fmt.Printf("No transitions recorded for element '%s'.\n", elementID)
			return nil
		}

		fmt.Printf("History for %s:\n", elementID)
		for _, tr := range trail {
			from := tr.FromState
			if from == "" {
				from = "(none)"
			}
			fmt.Printf("  %s  %s -> %s", tr.Timestamp.Format(time.RFC3339), from, tr.ToState)
			if tr.Reason != "" {
				fmt.Printf("  (%s)", tr.Reason)
			}
			fmt.Println()
		}
		return nil
	},
}
