package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/kimola/kimola-go/kimola"
)

// warnPercent is where usage cells turn to the warning style.
const warnPercent = 80

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func usageRows(u kimola.SubscriptionUsage) [][]string {
	rows := make([][]string, 0, 4)
	for _, b := range u.Buckets() {
		pct := strconv.FormatFloat(b.Percentage, 'f', -1, 64) + "%"
		if b.Limit > 0 && b.Percentage >= warnPercent {
			pct = warnStyle.Render(pct)
		}
		rows = append(rows, []string{
			b.Resource,
			humanize.Comma(int64(b.Count)),
			humanize.Comma(int64(b.Limit)),
			humanize.Comma(int64(b.Available)),
			pct,
		})
	}
	return rows
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return mutedStyle.Render("-")
	}
	return t.UTC().Format("2006-01-02 15:04") + " " + mutedStyle.Render("("+humanize.Time(t)+")")
}
