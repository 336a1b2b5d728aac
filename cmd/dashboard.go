package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/aggregate"
	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/store"
	"github.com/peter-marien/grindsync/internal/timecalc"
)

var dashboardDate string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the daily dashboard",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardDate, "date", "", "Date to show (YYYY-MM-DD); defaults to today")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	loc := reportLocation(cfg)
	now := time.Now()

	day := now.In(loc)
	if dashboardDate != "" {
		day, err = parseDate(dashboardDate, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
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

	person := firstPerson(snap)
	view := aggregate.Daily(snap, roles, person, day, now)

	fmt.Printf("%s\n", view.Date.Format("Monday, 2 January 2006"))
	fmt.Println("--------------------------------")
	if len(view.Entries) == 0 {
		fmt.Println("No time logged.")
	}
	for _, e := range view.Entries {
		end := "In Progress"
		if !e.InProgress {
			end = e.End.In(loc).Format("15:04")
		}
		fmt.Printf("%s – %-11s  %s  %s\n",
			e.Start.In(loc).Format("15:04"), end,
			timecalc.FormatDurationHHMMSS(e.Seconds), e.ItemName)
		if e.Notes != "" {
			fmt.Printf("                             %s\n", e.Notes)
		}
	}
	fmt.Println("--------------------------------")
	for _, it := range view.ItemTotals {
		fmt.Printf("%-12s %s\n", timecalc.FormatDuration(it.Seconds), it.ItemName)
	}
	fmt.Printf("Total: %s over %d entries\n", timecalc.FormatDuration(view.TotalSeconds), len(view.Entries))

	weekTotal := aggregate.WeekTotal(snap, person, day, now)
	fmt.Printf("Week %s: %s\n", timecalc.ISOWeekLabel(day), timecalc.FormatDuration(weekTotal))
	return nil
}
