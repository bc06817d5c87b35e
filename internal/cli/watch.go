package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Evaluation event stream management",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show evaluation stream length and pending events",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		length, pending, err := queue.New(rdb).Status(ctx)
		if err != nil {
			return fmt.Errorf("queue status: %w", err)
		}

		fmt.Printf("Stream %s:\n", queue.StreamEvaluations)
		fmt.Printf("  events:  %d\n", length)
		fmt.Printf("  pending: %d (group %s)\n", pending, queue.GroupObservers)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Consume evaluation events from the stream (blocking)",
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx := context.Background()
		q := queue.New(rdb)
		if err := q.EnsureStream(ctx); err != nil {
			return err
		}

		fmt.Printf("Watching %s as %s. Press Ctrl+C to stop.\n", queue.StreamEvaluations, consumer)
		for {
			event, msgID, err := q.ReadEvaluation(ctx, consumer)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintf(os.Stderr, "read error: %v\n", err)
				continue
			}

			flag := ""
			if event.Regression {
				flag = "  REGRESSION"
			}
			fmt.Printf("%s  element=%s process=%s stage=%s status=%s%s\n",
				event.Timestamp.Format(time.RFC3339), event.ElementID,
				event.Process, event.StageID, event.Status, flag)

			if err := q.Ack(ctx, msgID); err != nil {
				fmt.Fprintf(os.Stderr, "ack error: %v\n", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("consumer", "observer_1", "Consumer name within the observer group")
	queueCmd.AddCommand(queueStatusCmd)
}
