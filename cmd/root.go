package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iotcafe/backoffice/internal/config"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	apiURL     string
}

func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "backoffice",
		Short: "Web back office for the IoT Café API",
		Long: `Backoffice is a server-rendered console for the IoT Café REST API.

It lets staff browse, create, edit and delete books, coffees and orders.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "Base URL of the API (overrides API_URL)")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))

	return cmd
}

// loadConfig reads the config file and environment, then applies command-line overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.apiURL != "" {
		cfg.APIURL = f.apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
