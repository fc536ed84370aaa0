package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghost-ng/Papertrail/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition.yaml>",
	Short: "Validate a workflow definition file",
	Long: `Validate parses a workflow definition and runs publish-time
validation: node and edge integrity, a unique start node, terminal
reachability from every node, and absence of cycles outside declared
return edges.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := workflow.LoadDefinition(args[0])
		if err != nil {
			return err
		}
		if err := def.Publish(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Definition %q is valid\n", def.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "  Nodes:     %d\n", len(def.Nodes))
		fmt.Fprintf(cmd.OutOrStdout(), "  Edges:     %d\n", len(def.Edges))
		fmt.Fprintf(cmd.OutOrStdout(), "  Start:     %s\n", def.StartNode())
		fmt.Fprintf(cmd.OutOrStdout(), "  Terminals: %v\n", def.TerminalNodes())
		return nil
	},
}
