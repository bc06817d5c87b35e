package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [process]",
	Short: "Export a stage's expected schema as JSON",
	Long: `Export the expected schema of a stage. By default the stage's own schema
is printed; with --cumulative the schemas of every stage up to and including
the target are merged in stage order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stageID, _ := cmd.Flags().GetString("stage")
		cumulative, _ := cmd.Flags().GetBool("cumulative")

		proc, err := openRegistry().BuildProcess(args[0], nil)
		if err != nil {
			return err
		}

		if stageID == "" {
			stageID = proc.FinalStage
		}

		schema, err := proc.StageSchema(stageID)
		if cumulative {
			schema, err = proc.CumulativeSchema(stageID)
		}
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal schema: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	schemaCmd.Flags().String("stage", "", "Stage id (defaults to the final stage)")
	schemaCmd.Flags().Bool("cumulative", false, "Merge schemas of all stages up to the target")
}
