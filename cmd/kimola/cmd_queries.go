package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/kimola"
)

func newQueriesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Inspect query consumption",
	}
	cmd.AddCommand(newQueriesListCmd(c), newQueriesStatsCmd(c))
	return cmd
}

// dateRangeFlags registers --start and --end on cmd.
func dateRangeFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "range start (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(end, "end", "", "range end (YYYY-MM-DD or RFC3339)")
}

func parseRange(start, end string) (kimola.DateRange, error) {
	s, err := report.ParseDate(start)
	if err != nil {
		return kimola.DateRange{}, fmt.Errorf("invalid --start: %w", err)
	}
	e, err := report.ParseDate(end)
	if err != nil {
		return kimola.DateRange{}, fmt.Errorf("invalid --end: %w", err)
	}
	if !s.IsZero() && !e.IsZero() && e.Before(s) {
		return kimola.DateRange{}, report.ErrInvalidRange
	}
	return kimola.DateRange{Start: s, End: e}, nil
}

func newQueriesListCmd(c *cli) *cobra.Command {
	var (
		params     kimola.ListQueriesParams
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List query consumption history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRange(start, end)
			if err != nil {
				return err
			}
			params.DateRange = r
			return c.withClient(func(client *kimola.Client) error {
				items, err := client.Queries.List(cmd.Context(), params)
				if err != nil {
					return err
				}
				if c.json {
					if items == nil {
						items = []kimola.QueryItem{}
					}
					return printJSON(cmd.OutOrStdout(), items)
				}
				rows := make([][]string, 0, len(items))
				for _, it := range items {
					title := it.Report.Title
					if title == "" {
						title = it.Report.Name
					}
					rows = append(rows, []string{formatDate(it.Date.Time), string(it.Type), humanize.Comma(int64(it.Amount)), title})
				}
				return renderTable(cmd.OutOrStdout(), []string{"DATE", "TYPE", "AMOUNT", "REPORT"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&params.PageIndex, "page", 0, "page index")
	cmd.Flags().IntVar(&params.PageSize, "size", 10, "page size")
	dateRangeFlags(cmd, &start, &end)
	return cmd
}

func newQueriesStatsCmd(c *cli) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show consumption aggregated by query type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRange(start, end)
			if err != nil {
				return err
			}
			return c.withClient(func(client *kimola.Client) error {
				stats, err := client.Queries.Statistics(cmd.Context(), r)
				if err != nil {
					return err
				}
				if c.json {
					if stats == nil {
						stats = []kimola.QueryStat{}
					}
					return printJSON(cmd.OutOrStdout(), stats)
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{string(s.Name), humanize.Comma(int64(s.Count)), strconv.Itoa(s.Percentage) + "%"})
				}
				return renderTable(cmd.OutOrStdout(), []string{"TYPE", "COUNT", "SHARE"}, rows)
			})
		},
	}
	dateRangeFlags(cmd, &start, &end)
	return cmd
}
