package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [process]",
	Short: "Run the consistency checker against a registered process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		proc, err := openRegistry().BuildProcess(name, nil)
		if err != nil {
			return err
		}

		report := proc.Consistency()
		if report.Valid {
			fmt.Printf("Process '%s' is consistent: every stage is reachable and can reach '%s'.\n",
				name, proc.FinalStage)
			return nil
		}

		fmt.Printf("Process '%s' has %d consistency issue(s):\n", name, len(report.Issues))
		for _, issue := range report.Issues {
			fmt.Printf("  [%s] stage %s: %s\n", issue.Type, issue.StageID, issue.Description)
		}
		return fmt.Errorf("process %q is inconsistent", name)
	},
}
