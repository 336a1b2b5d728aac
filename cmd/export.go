package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/export"
	"github.com/peter-marien/grindsync/internal/store"
	"github.com/peter-marien/grindsync/internal/timecalc"
)

var (
	exportFrom            string
	exportTo              string
	exportOut             string
	exportIncludeOriginal bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export periods in a date range to a CSV file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD); defaults to 7 days ago")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD, inclusive); defaults to today")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default grindsync_export_<from>_<to>.csv)")
	exportCmd.Flags().BoolVar(&exportIncludeOriginal, "include-original", true, "Include the original work item title column")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	loc := reportLocation(cfg)
	now := time.Now()

	fromDay := timecalc.StartOfDay(now.In(loc)).AddDate(0, 0, -7)
	if exportFrom != "" {
		fromDay, err = parseDate(exportFrom, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	toDay := timecalc.StartOfDay(now.In(loc))
	if exportTo != "" {
		toDay, err = parseDate(exportTo, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if fromDay.After(toDay) {
		fmt.Fprintln(os.Stderr, "start date must be before end date")
		os.Exit(2)
	}

	outPath := exportOut
	if outPath == "" {
		outPath = fmt.Sprintf("grindsync_export_%s_%s.csv",
			fromDay.Format("20060102"), toDay.Format("20060102"))
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

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating %s: %v\n", outPath, err)
		os.Exit(2)
	}
	defer f.Close()

	opts := export.Options{
		From:            fromDay,
		To:              timecalc.Midnight(toDay), // inclusive end date
		IncludeOriginal: exportIncludeOriginal,
		Now:             now,
	}
	if err := export.Write(f, snap, roles, opts); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", outPath, err)
		os.Exit(2)
	}

	fmt.Printf("Exported %d period(s) to %s\n", len(export.Rows(snap, roles, opts)), outPath)
	return nil
}
