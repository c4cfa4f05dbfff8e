package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and your subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			token := viper.GetString("auth.token")
			if token != "" {
				apiClient.SetToken(token)
			}

			summary := map[string]interface{}{
				"server": apiClient.BaseURL(),
			}

			health, err := apiClient.Health(ctx)
			if err != nil {
				summary["health"] = "error: " + err.Error()
			} else {
				summary["health"] = health.Status
				summary["database"] = health.Database
			}

			if token != "" {
				if sub, err := apiClient.Subscriptions().Current(ctx); err == nil {
					summary["plan"] = planName(sub)
					summary["subscription"] = sub.Status
				} else {
					summary["subscription"] = "none"
				}
			}

			if getOutputFormat() != "table" {
				return printOutput(summary)
			}

			fmt.Println("Remlyo Status")
			fmt.Println(strings.Repeat("=", 40))
			fmt.Printf("  Server:        %s\n", summary["server"])
			fmt.Printf("  Health:        %s\n", formatStatus(fmt.Sprint(summary["health"])))
			if db, ok := summary["database"]; ok {
				fmt.Printf("  Database:      %s\n", db)
			}
			if token == "" {
				fmt.Println("  Account:       not logged in")
				return nil
			}
			fmt.Printf("  Account:       %s\n", viper.GetString("auth.email"))
			fmt.Printf("  Subscription:  %s\n", formatStatus(fmt.Sprint(summary["subscription"])))
			if p, ok := summary["plan"]; ok {
				fmt.Printf("  Plan:          %s\n", p)
			}
			return nil
		},
	}
}
