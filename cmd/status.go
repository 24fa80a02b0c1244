package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/iotcafe/backoffice/internal/apiclient"
	"github.com/iotcafe/backoffice/internal/logging"
)

// statusReport is the YAML document printed by the status command
type statusReport struct {
	API       string         `yaml:"api"`
	Version   string         `yaml:"version"`
	Counts    map[string]int `yaml:"counts"`
	CheckedAt string         `yaml:"checked_at"`
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the API version and record counts",
		Example: `  backoffice status
  backoffice status --api-url http://127.0.0.1:8000/api/v1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			client := apiclient.NewClient(cfg.APIURL, cfg.RequestTimeout)
			report, err := collectStatus(cmd.Context(), client)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), report)
		},
	}

	return cmd
}

// collectStatus queries the version and every collection in parallel
func collectStatus(ctx context.Context, client *apiclient.Client) (*statusReport, error) {
	report := &statusReport{
		API:       client.BaseURL,
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}

	var books, coffees, orders int
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := client.Version(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch API version: %w", err)
		}
		report.Version = info.Version
		return nil
	})
	g.Go(func() error {
		list, err := client.ListBooks(ctx)
		if err != nil {
			return fmt.Errorf("failed to list books: %w", err)
		}
		books = len(list)
		return nil
	})
	g.Go(func() error {
		list, err := client.ListCoffees(ctx)
		if err != nil {
			return fmt.Errorf("failed to list coffees: %w", err)
		}
		coffees = len(list)
		return nil
	})
	g.Go(func() error {
		list, err := client.ListOrders(ctx)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		orders = len(list)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Counts = map[string]int{
		"books":   books,
		"coffees": coffees,
		"orders":  orders,
	}
	return report, nil
}

func writeStatus(w io.Writer, report *statusReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return enc.Close()
}
