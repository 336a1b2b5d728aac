package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/aggregate"
	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/store"
)

var (
	overviewMonth int
	overviewYear  int
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the monthly hours-per-item table",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

func init() {
	overviewCmd.Flags().IntVar(&overviewMonth, "month", 0, "Month 1-12 (defaults to the current month)")
	overviewCmd.Flags().IntVar(&overviewYear, "year", 0, "Year (defaults to the current year)")
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	loc := reportLocation(cfg)
	now := time.Now()

	year, month := now.In(loc).Year(), now.In(loc).Month()
	if overviewYear != 0 {
		year = overviewYear
	}
	if overviewMonth != 0 {
		if overviewMonth < 1 || overviewMonth > 12 {
			fmt.Fprintln(os.Stderr, "month must be between 1 and 12")
			os.Exit(2)
		}
		month = time.Month(overviewMonth)
	}

	b, err := openStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer b.Close()

	roles, err := store.ResolveRoles(ctx, b)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	snap, err := b.Snapshot(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ov := aggregate.Monthly(snap, roles, firstPerson(snap), year, month, loc, now, cfg.HoursPerWorkday)
	printOverview(ov)
	return nil
}

func printOverview(ov aggregate.Overview) {
	fmt.Printf("%s %d\n\n", ov.Month, ov.Year)

	// Column widths: key and item sized to content, 6 chars per day cell.
	keyWidth, itemWidth := len("Jira Key"), len("TOTAL")
	for _, row := range ov.Rows {
		if len(row.IssueKey) > keyWidth {
			keyWidth = len(row.IssueKey)
		}
		if len(row.ItemName) > itemWidth {
			itemWidth = len(row.ItemName)
		}
	}

	var header strings.Builder
	fmt.Fprintf(&header, "%-*s  %-*s", keyWidth, "Jira Key", itemWidth, "Work Item")
	for d := 1; d <= ov.DaysInMonth; d++ {
		fmt.Fprintf(&header, " %5d", d)
	}
	fmt.Fprintf(&header, "  %7s", "Total")
	fmt.Println(header.String())
	fmt.Println(strings.Repeat("-", len(header.String())))

	for _, row := range ov.Rows {
		printOverviewRow(row, keyWidth, itemWidth, ov.DaysInMonth)
	}
	fmt.Println(strings.Repeat("-", len(header.String())))
	printOverviewRow(ov.TotalRow, keyWidth, itemWidth, ov.DaysInMonth)

	overtime := color.New(color.FgGreen)
	if ov.Overtime < 0 {
		overtime = color.New(color.FgRed)
	}
	fmt.Printf("\nWorkdays: %d    Average: %.2f h/day    Overtime: %s\n",
		ov.Workdays, ov.Average, overtime.Sprintf("%+.2f h", ov.Overtime))
}

func printOverviewRow(row aggregate.Row, keyWidth, itemWidth, days int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %-*s", keyWidth, row.IssueKey, itemWidth, row.ItemName)
	for d := 1; d <= days; d++ {
		if hours, ok := row.Hours[d]; ok {
			fmt.Fprintf(&b, " %5.2f", hours)
		} else {
			fmt.Fprintf(&b, " %5s", "")
		}
	}
	fmt.Fprintf(&b, "  %7.2f", row.Total)
	fmt.Println(b.String())
}
