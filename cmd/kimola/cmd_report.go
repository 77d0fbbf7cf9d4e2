package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kimola/kimola-go/internal/report"
	"github.com/kimola/kimola-go/internal/shared/storage/object/local"
	"github.com/kimola/kimola-go/kimola"
)

func newReportCmd(c *cli) *cobra.Command {
	var start, end, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a usage and consumption report",
		Long: `Build a report combining subscription usage with query statistics.

With --out the report is also archived as JSON under
<out>/reports/<date>/<id>.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRange(start, end)
			if err != nil {
				return err
			}
			return c.withClient(func(client *kimola.Client) error {
				rep, err := report.Build(cmd.Context(), report.ClientSource(client), r)
				if err != nil {
					return err
				}
				key := ""
				if out != "" {
					if key, err = report.Archive(cmd.Context(), local.New(out), rep); err != nil {
						return err
					}
				}

				w := cmd.OutOrStdout()
				if c.json {
					return printJSON(w, rep)
				}
				fmt.Fprintf(w, "Report %s generated %s\n", rep.ID, formatDate(rep.GeneratedAt))
				if err := renderTable(w, []string{"RESOURCE", "USED", "LIMIT", "AVAILABLE", "USAGE"}, usageRows(rep.Usage)); err != nil {
					return err
				}
				rows := make([][]string, 0, len(rep.Statistics))
				for _, s := range rep.Statistics {
					rows = append(rows, []string{string(s.Name), humanize.Comma(int64(s.Count)), fmt.Sprintf("%d%%", s.Percentage)})
				}
				if err := renderTable(w, []string{"TYPE", "COUNT", "SHARE"}, rows); err != nil {
					return err
				}
				fmt.Fprintf(w, "Total queries: %s\n", humanize.Comma(int64(rep.TotalQueries)))
				if key != "" {
					fmt.Fprintf(w, "Archived to %s\n", key)
				}
				return nil
			})
		},
	}
	dateRangeFlags(cmd, &start, &end)
	cmd.Flags().StringVar(&out, "out", "", "directory to archive the report in")
	return cmd
}
