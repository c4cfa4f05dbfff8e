package cli

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Settings read by the CLI
const (
	keyServerURL = "server_url"
	keyOutput    = "output"

	defaultServerURL = "http://localhost:8080"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			server := prompt(reader, "Remlyo API URL", defaultServerURL)
			format := prompt(reader, "Default output format (table/json/yaml)", "table")
			for key, value := range map[string]string{keyServerURL: server, keyOutput: format} {
				if err := validateSetting(key, value); err != nil {
					return err
				}
				viper.Set(key, value)
			}

			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}

			configPath := filepath.Join(home, configDirName, "config.yaml")
			if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := viper.WriteConfigAs(configPath); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Fprintf(stdout, "Configuration saved to %s\n", configPath)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateSetting(args[0], args[1]); err != nil {
				return err
			}
			viper.Set(args[0], args[1])
			if err := writeConfig(); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val := viper.Get(args[0])
			if val == nil {
				fmt.Fprintf(stdout, "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(stdout, "%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := viper.AllSettings()
			keys := make([]string, 0, len(settings))
			for key := range settings {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				if key == "auth" {
					fmt.Fprintf(stdout, "%s: (credentials stored)\n", key)
					continue
				}
				fmt.Fprintf(stdout, "%s: %v\n", key, settings[key])
			}
			return nil
		},
	}
}

func writeConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(home, configDirName, "config.yaml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return viper.WriteConfigAs(configPath)
}

func prompt(reader *bufio.Reader, label, fallback string) string {
	fmt.Fprintf(stdout, "%s [%s]: ", label, fallback)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return fallback
}

// validateSetting rejects values the CLI could not use later. Credentials
// are only written by the auth commands.
func validateSetting(key, value string) error {
	switch {
	case key == keyServerURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
		}
	case key == keyOutput:
		switch value {
		case "table", "json", "yaml":
		default:
			return fmt.Errorf("%s must be table, json or yaml, got %q", key, value)
		}
	case key == "auth" || strings.HasPrefix(key, "auth."):
		return fmt.Errorf("%s is managed by 'remlyo auth login'", key)
	}
	return nil
}
