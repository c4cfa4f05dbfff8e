package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminInitCmd())

	return cmd
}

func newAdminInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Seed the default plans (requires admin role)",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := apiClient.Plans().Initialize(context.Background())
			if err != nil {
				return fmt.Errorf("failed to initialize plans: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(res)
			}

			fmt.Println(res.Message)
			fmt.Printf("Catalog version: %d\n", res.Version)
			return nil
		},
	}
}
