package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the flow definitions for consistency",
	Long: `Builds every flow of the project and reports missing or unreachable states, flows
that cannot end, and subflows that do not exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := loadFlows(cmd)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		var errs []error
		for _, id := range stack.Flows.IDs() {
			flow, _ := stack.Flows.Get(id)
			if err := validator.ValidateFlow(flow, stack.Flows); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d flows are valid! ✅\n", len(stack.Flows.IDs()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
