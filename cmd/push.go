package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/reconcile"
	"github.com/peter-marien/grindsync/internal/store"
	"github.com/peter-marien/grindsync/internal/timecalc"
)

var (
	pushFrom   string
	pushTo     string
	pushDryRun bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push local periods to Jira as work-logs",
	Long: `push creates a remote work-log for every local period in the range
whose work item is linked to a Jira issue and connection. Periods
without that linkage are skipped.

Nothing records which periods were already pushed: re-running push over
the same range creates duplicate remote work-logs.`,
	Args: cobra.NoArgs,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushFrom, "from", "", "Start date (YYYY-MM-DD); defaults to today")
	pushCmd.Flags().StringVar(&pushTo, "to", "", "End date (YYYY-MM-DD, inclusive); defaults to --from")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "List the periods that would be pushed without pushing")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	loc := reportLocation(cfg)
	now := time.Now()

	from := timecalc.StartOfDay(now.In(loc))
	if pushFrom != "" {
		from, err = parseDate(pushFrom, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	to := timecalc.Midnight(from)
	if pushTo != "" {
		end, err := parseDate(pushTo, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		to = timecalc.Midnight(end)
	}
	if !from.Before(to) {
		fmt.Fprintln(os.Stderr, "start date must be before end date")
		os.Exit(2)
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

	var periods []model.Period
	for _, p := range snap.Periods {
		if p.Start.Before(to) && p.EffectiveEnd(now).After(from) {
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })
	if len(periods) == 0 {
		fmt.Println("No periods in range.")
		return nil
	}

	if pushDryRun {
		for _, p := range periods {
			name := "Unknown"
			if item, ok := snap.Items[p.ItemID]; ok {
				name = item.Name
			}
			seconds := int64(p.EffectiveEnd(now).Sub(p.Start).Seconds())
			fmt.Printf("  would push: %s @ %s (%s)\n",
				name, p.Start.In(loc).Format("2006-01-02 15:04"), timecalc.FormatDuration(seconds))
		}
		fmt.Printf("%d period(s) in range; nothing pushed.\n", len(periods))
		return nil
	}

	conns, err := b.Connections()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	syncer, err := reconcile.NewSyncer(b, roles, conns, dialConnection, reconcile.SyncerOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Pushing %d period(s) from %s to %s...\n",
		len(periods), from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02"))

	report, err := syncer.SyncPeriods(ctx, periods)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	for _, ie := range report.Errors {
		fmt.Printf("  ! Failed: %s: %s\n", ie.Item, ie.Message)
	}
	fmt.Printf("Pushed %d, skipped %d, failed %d.\n", report.Succeeded, report.Skipped, report.Failed)
	if report.Failed > 0 {
		os.Exit(1)
	}
	return nil
}
