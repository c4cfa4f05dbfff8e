package cli

import (
	"context"
	"fmt"

	"github.com/remlyo/remlyo/pkg/client"
	"github.com/spf13/cobra"
)

func newAccessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Check, open and buy remedies",
	}

	cmd.AddCommand(newAccessCheckCmd())
	cmd.AddCommand(newAccessViewCmd())
	cmd.AddCommand(newAccessPurchaseCmd())

	return cmd
}

func newAccessCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <ailmentId> <remedyId>",
		Short: "Check access to a remedy without using a free view",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := apiClient.Subscriptions().CheckAccess(context.Background(), args[0], args[1])
			if err != nil {
				if required := client.RequiredAction(err); required != "" {
					res = &client.AccessResult{Reason: required}
				} else {
					return fmt.Errorf("failed to check access: %w", err)
				}
			}

			if getOutputFormat() != "table" {
				return printOutput(res)
			}

			renderDecision(stdout, res)
			return nil
		},
	}
}

func newAccessViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <ailmentId> <remedyId>",
		Short: "Open a remedy, counting it against your free views",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := apiClient.Remedies().View(context.Background(), args[0], args[1])
			if err != nil {
				if required := client.RequiredAction(err); required != "" {
					return fmt.Errorf("access denied: %s", describeRequired(required))
				}
				return fmt.Errorf("failed to open remedy: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(view)
			}

			renderView(stdout, view)
			return nil
		},
	}
}

func newAccessPurchaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purchase <ailmentId> <remedyId>",
		Short: "Buy a remedy under the pay-per-remedy plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := apiClient.Remedies().Purchase(context.Background(), args[0], args[1])
			if err != nil {
				if required := client.RequiredAction(err); required != "" {
					return fmt.Errorf("purchase not allowed: %s", describeRequired(required))
				}
				return fmt.Errorf("failed to purchase remedy: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(p)
			}

			renderPurchase(stdout, p)
			return nil
		},
	}
}
