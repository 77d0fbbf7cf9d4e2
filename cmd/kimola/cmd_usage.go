package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/kimola"
)

func newUsageCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show subscription usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := report.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			return c.withClient(func(client *kimola.Client) error {
				u, err := client.Subscription.Usage(cmd.Context(), kimola.UsageParams{Date: d})
				if err != nil {
					return err
				}
				if c.json {
					return printJSON(cmd.OutOrStdout(), u)
				}
				return renderTable(cmd.OutOrStdout(), []string{"RESOURCE", "USED", "LIMIT", "AVAILABLE", "USAGE"}, usageRows(*u))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "usage period containing this date (default current)")
	return cmd
}
