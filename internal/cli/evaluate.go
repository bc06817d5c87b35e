package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/internal/engine"
	"github.com/stagegate/stagegate/internal/history"
	"github.com/stagegate/stagegate/internal/queue"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [process] [element-file]",
	Short: "Evaluate an element document against a process",
	Long: `Evaluate a JSON or YAML element document against a registered process.

With --element-id the element's stored history is loaded and regression
detection runs. With --record the resulting transition is appended to the
history, the evaluation is written to the audit table, and an event is
published to the Redis stream.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stageOverride, _ := cmd.Flags().GetString("stage")
		elementID, _ := cmd.Flags().GetString("element-id")
		record, _ := cmd.Flags().GetBool("record")
		asJSON, _ := cmd.Flags().GetBool("json")

		if record && elementID == "" {
			return fmt.Errorf("--record requires --element-id")
		}

		doc, err := loadElement(args[1])
		if err != nil {
			return err
		}

		proc, err := openRegistry().BuildProcess(args[0], nil)
		if err != nil {
			return err
		}

		ctx := context.Background()
		opts := engine.EvalOptions{StageOverride: stageOverride}

		var store *history.PGStore
		var fromState string
		if elementID != "" {
			pool, err := connectDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			store = history.NewPGStore(pool)

			trail, err := store.List(ctx, elementID)
			if err != nil {
				return err
			}
			opts.History = trail
			if len(trail) > 0 {
				fromState = trail[len(trail)-1].ToState
			}
		}

		result, err := proc.Evaluate(engine.NewElement(doc), opts)
		if err != nil {
			return err
		}

		if asJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
			fmt.Println(string(out))
		} else {
			printResult(result)
		}

		if !record {
			return nil
		}

		tr := history.NewTransition(elementID, fromState, result, doc, "recorded by stagegate evaluate")
		if err := store.Append(ctx, tr); err != nil {
			return err
		}
		if err := store.RecordEvaluation(ctx, elementID, result); err != nil {
			return err
		}

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		q := queue.New(rdb)
		if err := q.EnsureStream(ctx); err != nil {
			return err
		}
		_, err = q.PublishEvaluation(ctx, queue.EvaluationEvent{
			ElementID:  elementID,
			Process:    result.Process,
			StageID:    result.StageID,
			Status:     string(result.Status),
			Regression: result.Regression != nil && result.Regression.Detected(),
			Timestamp:  time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("\nRecorded transition %s and published evaluation event.\n", tr.ID)
		return nil
	},
}

func loadElement(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read element file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse element file: %w", err)
	}
	return doc, nil
}

func printResult(result *engine.EvaluationResult) {
	fmt.Printf("Process: %s\n", result.Process)
	fmt.Printf("Stage:   %s\n", result.StageID)
	fmt.Printf("Status:  %s\n", result.Status)

	if len(result.SchemaViolations) > 0 {
		fmt.Println("\nSchema violations:")
		for _, v := range result.SchemaViolations {
			fmt.Printf("  %s: expected %s, got %s\n", v.Property, v.Expected, v.Got)
		}
	}

	if len(result.GateResults) > 0 {
		fmt.Println("\nGates:")
		for name, gr := range result.GateResults {
			if gr.Passed {
				fmt.Printf("  %s: passed\n", name)
				continue
			}
			fmt.Printf("  %s: failed (%s)\n", name, strings.Join(gr.FailedLocks, ", "))
		}
	}

	if result.Regression != nil && result.Regression.Detected() {
		fmt.Println("\nRegression detected:")
		for _, reason := range result.Regression.Reasons {
			fmt.Printf("  %s\n", reason)
		}
	}

	if len(result.SuggestedActions) > 0 {
		fmt.Println("\nSuggested actions:")
		for _, action := range result.SuggestedActions {
			fmt.Printf("  %s\n", action)
		}
	}

	if len(result.ExpectedActions) > 0 {
		fmt.Println("\nExpected actions:")
		for _, action := range result.ExpectedActions {
			fmt.Printf("  %s", action.Name)
			if action.Description != "" {
				fmt.Printf(": %s", action.Description)
			}
			fmt.Println()
			for _, inst := range action.Instructions {
				fmt.Printf("    - %s\n", inst)
			}
		}
	}
}

func init() {
	evaluateCmd.Flags().String("stage", "", "Evaluate at a specific stage instead of resolving one")
	evaluateCmd.Flags().String("element-id", "", "Element identifier; loads history and enables regression detection")
	evaluateCmd.Flags().Bool("record", false, "Record the transition and publish an evaluation event")
	evaluateCmd.Flags().Bool("json", false, "Print the full result as JSON")
}
