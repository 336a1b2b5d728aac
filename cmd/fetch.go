package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/reconcile"
	"github.com/peter-marien/grindsync/internal/store"
	"github.com/peter-marien/grindsync/internal/timecalc"
)

var (
	fetchConnection string
	fetchDate       string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Import your Jira work-logs for a date as local periods",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchConnection, "connection", "", "Connection name (defaults to the configured default)")
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "Date to fetch (YYYY-MM-DD); defaults to today")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	loc := reportLocation(cfg)

	date := time.Now().In(loc)
	if fetchDate != "" {
		date, err = parseDate(fetchDate, loc)
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

	conn, err := resolveConnection(b, fetchConnection, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	client := dialConnection(conn)

	fmt.Printf("Fetching work-logs for %s from %q...\n", date.Format("2006-01-02"), conn.Name)
	worklogs, err := client.FetchWorklogsForDate(ctx, date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(worklogs) == 0 {
		fmt.Println("No work-logs found.")
		return nil
	}

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

	importer, err := reconcile.NewImporter(b, roles, client, conn.Name, reconcile.ImporterOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	for _, wl := range worklogs {
		label := wl.IssueSummary
		if label == "" {
			label = wl.IssueKey
		}
		fmt.Printf("  • %s: %s (%s)\n", wl.IssueKey, label, timecalc.FormatDuration(wl.Seconds))
	}

	result, err := importer.ImportWorklogs(ctx, worklogs, firstPerson(snap))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	for _, ie := range result.Errors {
		fmt.Printf("  ! Error: %s: %s\n", ie.Item, ie.Message)
	}
	fmt.Printf("Imported %d period(s), %d failed.\n", result.Imported, result.Failed)
	return nil
}
