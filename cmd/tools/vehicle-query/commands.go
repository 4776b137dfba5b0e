package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/finance"
	"finance-agreements/internal/models"

	"github.com/spf13/cobra"
)

type connectOptions struct {
	configPath  string
	instanceURL string
	accessToken string
	apiVersion  string
}

type connectFunc func(opts connectOptions) (salesforce.Connection, error)

// connectFromFlags prefers an explicit access token and falls back to the
// integration user from the config file.
func connectFromFlags(opts connectOptions) (salesforce.Connection, error) {
	if opts.accessToken != "" {
		if opts.instanceURL == "" {
			return nil, fmt.Errorf("--instance-url is required with --access-token")
		}
		return salesforce.NewClientWithToken(opts.instanceURL, opts.apiVersion, opts.accessToken, nil), nil
	}

	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	user, ok := salesforce.IntegrationUserFromConfig(cfg.Salesforce)
	if !ok {
		return nil, fmt.Errorf("no Salesforce integration user configured; set SALESFORCE_CLIENT_ID and SALESFORCE_CLIENT_SECRET or pass --access-token")
	}
	return salesforce.NewIntegrationUserClient(user, &http.Client{Timeout: config.GetDuration(cfg.Salesforce.Timeout)}), nil
}

func newRootCmd(connect connectFunc) *cobra.Command {
	opts := connectOptions{}

	root := &cobra.Command{
		Use:           "vehicle-query",
		Short:         "Inspect the vehicle query issued by the finance agreement service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config file (defaults to configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.instanceURL, "instance-url", "", "Org base URL, used with --access-token")
	root.PersistentFlags().StringVar(&opts.accessToken, "access-token", "", "Session access token instead of the integration user")
	root.PersistentFlags().StringVar(&opts.apiVersion, "api-version", "62.0", "REST API version, used with --access-token")

	root.AddCommand(newSOQLCmd(), newFetchCmd(connect, &opts))
	return root
}

func newSOQLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "soql <vehicleId>",
		Short: "Print the SOQL sent for a vehicle ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), finance.BuildVehicleQuery(args[0]))
			return nil
		},
	}
}

func newFetchCmd(connect connectFunc, opts *connectOptions) *cobra.Command {
	var (
		raw     bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch <vehicleId>",
		Short: "Run the vehicle query and print the records as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(*opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := conn.Query(ctx, finance.BuildVehicleQuery(args[0]))
			if err != nil {
				return fmt.Errorf("vehicle query failed: %w", err)
			}

			var out interface{} = result.Records
			if !raw {
				var vehicles []models.Vehicle
				if err := result.DecodeRecords(&vehicles); err != nil {
					return err
				}
				out = vehicles
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print records exactly as returned, including attributes")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Query timeout")
	return cmd
}
