package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/definition"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process definition management",
}

var processAddCmd = &cobra.Command{
	Use:   "add [definition-file]",
	Short: "Register a process from a YAML or JSON definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.Load(args[0])
		if err != nil {
			return err
		}

		if problems := def.Validate(); len(problems) > 0 {
			fmt.Printf("Definition has %d problem(s):\n", len(problems))
			for _, p := range problems {
				fmt.Printf("  %s\n", p)
			}
			return fmt.Errorf("definition %q is invalid", def.Name)
		}

		proc, err := def.Build(definition.BuildOptions{})
		if err != nil {
			return err
		}

		reg := openRegistry()
		if err := reg.Save(def); err != nil {
			return err
		}

		fmt.Printf("Process '%s' registered (%d stages).\n", def.Name, len(def.Stages))
		if report := proc.Consistency(); !report.Valid {
			fmt.Printf("Warning: %d consistency issue(s). Run 'stagegate check %s' for details.\n",
				len(report.Issues), def.Name)
		}
		return nil
	},
}

var processListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := openRegistry()
		names, err := reg.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No processes registered. Run 'stagegate process add <file>'.")
			return nil
		}

		fmt.Println("Processes:")
		for _, name := range names {
			def, err := reg.Load(name)
			if err != nil {
				fmt.Printf("  %-24s (unreadable: %v)\n", name, err)
				continue
			}
			fmt.Printf("  %-24s %d stages  %s -> %s\n",
				name, len(def.Stages), initialOf(def), finalOf(def))
		}
		return nil
	},
}

var processShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Display a process definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		reg := openRegistry()
		def, err := reg.Load(args[0])
		if err != nil {
			return err
		}

		if asJSON {
			out, err := json.MarshalIndent(def, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal definition: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("process %s\n", def.Name)
		if def.Description != "" {
			fmt.Printf("  %s\n", def.Description)
		}
		fmt.Printf("flow: %s -> %s\n", initialOf(def), finalOf(def))
		if def.StageProperty != "" {
			fmt.Printf("stage property: %s\n", def.StageProperty)
		}
		if def.RegressionPolicy != "" {
			fmt.Printf("regression policy: %s\n", def.RegressionPolicy)
		}

		fmt.Println("stages")
		for _, s := range def.Stages {
			marker := ""
			if s.Final {
				marker = " [final]"
			}
			fmt.Printf("  %s%s\n", s.ID, marker)
			for prop, field := range s.Schema {
				req := ""
				if field.Required != nil && *field.Required {
					req = " (required)"
				}
				fmt.Printf("    schema %s: %s%s\n", prop, field.Type, req)
			}
			for _, g := range s.Gates {
				locks := make([]string, 0, len(g.Locks))
				for _, l := range g.Locks {
					locks = append(locks, l.Name)
				}
				logic := g.Logic
				if logic == "" {
					logic = "and"
				}
				fmt.Printf("    gate %s -> %s (%s: %s)\n", g.Name, g.Target, logic, strings.Join(locks, ", "))
			}
		}
		return nil
	},
}

var processRollbackCmd = &cobra.Command{
	Use:   "rollback [name]",
	Short: "Restore the previous version of a process definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := openRegistry()
		if err := reg.Rollback(args[0]); err != nil {
			return err
		}
		fmt.Printf("Process '%s' rolled back to its previous version.\n", args[0])
		return nil
	},
}

var processDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove a process definition and its backups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := openRegistry()
		if err := reg.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Process '%s' deleted.\n", args[0])
		return nil
	},
}

func initialOf(def *definition.ProcessDefinition) string {
	if def.InitialStage != "" {
		return def.InitialStage
	}
	if len(def.Stages) > 0 {
		return def.Stages[0].ID
	}
	return "?"
}

func finalOf(def *definition.ProcessDefinition) string {
	if def.FinalStage != "" {
		return def.FinalStage
	}
	if len(def.Stages) > 0 {
		return def.Stages[len(def.Stages)-1].ID
	}
	return "?"
}

func init() {
	processShowCmd.Flags().Bool("json", false, "Print the definition as JSON")

	processCmd.AddCommand(processAddCmd)
	processCmd.AddCommand(processListCmd)
	processCmd.AddCommand(processShowCmd)
	processCmd.AddCommand(processRollbackCmd)
	processCmd.AddCommand(processDeleteCmd)
}
