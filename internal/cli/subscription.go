package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/remlyo/remlyo/pkg/client"
	"github.com/spf13/cobra"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage your subscription",
	}

	cmd.AddCommand(newSubscriptionSubscribeCmd())
	cmd.AddCommand(newSubscriptionCurrentCmd())
	cmd.AddCommand(newSubscriptionCancelCmd())
	cmd.AddCommand(newSubscriptionHistoryCmd())

	return cmd
}

func newSubscriptionSubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <planId|planName>",
		Short: "Subscribe to a plan, replacing any active subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := subscribeTo(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(sub)
			}
			renderSubscription(stdout, sub)
			return nil
		},
	}
}

// subscribeTo sends a catalog plan name such as "premium" by name and
// anything else as a plan id
func subscribeTo(ctx context.Context, arg string) (*client.Subscription, error) {
	if name := strings.ToLower(arg); client.IsPlanName(name) {
		return apiClient.Subscriptions().SubscribeByName(ctx, name)
	}
	return apiClient.Subscriptions().Subscribe(ctx, arg)
}

func newSubscriptionCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show your active subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := apiClient.Subscriptions().Current(context.Background())
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.IsNotFound() {
					fmt.Println("No active subscription. Run 'remlyo plans list' to pick one.")
					return nil
				}
				return fmt.Errorf("failed to get subscription: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(sub)
			}

			renderSubscription(stdout, sub)
			renderLedger(stdout, sub.RemedyAccess)
			return nil
		},
	}
}

func newSubscriptionCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel your active subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Subscriptions().Cancel(context.Background()); err != nil {
				return fmt.Errorf("failed to cancel subscription: %w", err)
			}
			fmt.Println("Subscription cancelled")
			return nil
		},
	}
}

func newSubscriptionHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List every subscription you have held",
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := apiClient.Subscriptions().History(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(subs)
			}

			renderHistory(stdout, subs)
			return nil
		},
	}
}

