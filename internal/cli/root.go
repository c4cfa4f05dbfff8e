package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/remlyo/remlyo/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configDirName = ".remlyo"

var (
	cfgFile      string
	outputFormat string
	serverURL    string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "remlyo",
	Short: "Remlyo CLI - subscription plans and remedy access",
	Long: `Remlyo CLI provides command-line access to the Remlyo API for
browsing plans, managing your subscription, and checking or buying
access to remedies.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := strings.TrimPrefix(cmd.CommandPath(), "remlyo ")
		switch {
		case strings.HasPrefix(path, "config "), path == "auth logout":
			// Only the local config file is touched
			return nil
		case path == "auth login", path == "auth register", path == "plans list", path == "status":
			return initClient()
		}
		return initAuthenticatedClient()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.remlyo/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag(keyOutput, rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag(keyServerURL, rootCmd.PersistentFlags().Lookup("server"))

	// Register all subcommands
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPlansCmd())
	rootCmd.AddCommand(newSubscriptionCmd())
	rootCmd.AddCommand(newAccessCmd())
	rootCmd.AddCommand(newAdminCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := filepath.Join(home, configDirName)
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REMLYO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault(keyServerURL, defaultServerURL)
	viper.SetDefault(keyOutput, "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString(keyServerURL)
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
	})
	return nil
}

func initAuthenticatedClient() error {
	if err := initClient(); err != nil {
		return err
	}

	token := viper.GetString("auth.token")
	if token == "" {
		return fmt.Errorf("not authenticated. Run 'remlyo auth login' first")
	}

	apiClient.SetToken(token)
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString(keyOutput)
}
