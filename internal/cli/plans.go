package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Browse subscription plans",
	}

	cmd.AddCommand(newPlansListCmd())

	return cmd
}

func newPlansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := apiClient.Plans().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list plans: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(plans)
			}

			renderPlans(stdout, plans)
			return nil
		},
	}
}

