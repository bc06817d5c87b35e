package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/diagram"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [process]",
	Short: "Render the stage graph as Mermaid or Graphviz DOT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		proc, err := openRegistry().BuildProcess(args[0], nil)
		if err != nil {
			return err
		}

		switch format {
		case "mermaid":
			fmt.Print(diagram.Mermaid(proc))
		case "dot":
			fmt.Print(diagram.DOT(proc))
		default:
			return fmt.Errorf("unknown format %q (want mermaid or dot)", format)
		}
		return nil
	},
}

func init() {
	diagramCmd.Flags().String("format", "mermaid", "Output format: mermaid|dot")
}
