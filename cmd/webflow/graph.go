package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/cli"
	"github.com/aretw0/webflow/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [flow]",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of a flow definition: its states, transitions and global transitions.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := loadFlows(cmd)
		if err != nil {
			return err
		}
		flowID := cli.EntryPoint(stack.Config.FlowsDir, stack.Flows.IDs())
		if len(args) > 0 {
			flowID = args[0]
		}
		if flowID == "" {
			return fmt.Errorf("several flows found, name one of %v", stack.Flows.IDs())
		}
		flow, err := stack.Flows.Flow(flowID)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if current, _ := cmd.Flags().GetString("current"); current != "" {
			overlay = &graph.GraphOverlay{CurrentState: current}
			overlay.VisitedStates, _ = cmd.Flags().GetStringSlice("visited")
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight a state as the current one")
	graphCmd.Flags().StringSlice("visited", nil, "Highlight states as visited (with --current)")
}
