package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/jira"
	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "grindsync",
	Short: "grindsync – reconcile local time tracking with Jira work-logs",
	Long: `grindsync keeps a local time-tracking store and a Jira instance in step:
it imports your remote work-logs as local periods, pushes local periods
up as work-logs, and renders monthly overviews, daily dashboards and
CSV exports. All data is stored in ~/.grindsync/.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(connectionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(exportCmd)
}

// openStore opens the bbolt entity store at ~/.grindsync/data.db.
func openStore() (*store.Bolt, error) {
	base, err := config.BaseDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(base, "data.db"))
}

// reportLocation resolves the configured reporting timezone.
func reportLocation(cfg config.Config) *time.Location {
	if cfg.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: unknown timezone %q, using local time\n", cfg.Timezone)
		return time.Local
	}
	return loc
}

// resolveConnection finds a stored connection by name, falling back to
// the configured default when name is empty.
func resolveConnection(b *store.Bolt, name string, cfg config.Config) (model.Connection, error) {
	if name == "" {
		name = cfg.DefaultConnection
	}
	if name == "" {
		return model.Connection{}, fmt.Errorf("no connection specified; use --connection or set default_connection in the config")
	}
	conns, err := b.Connections()
	if err != nil {
		return model.Connection{}, err
	}
	for _, c := range conns {
		if c.Name == name {
			return c, nil
		}
	}
	return model.Connection{}, fmt.Errorf("no connection named %q; add one with: grindsync connection add", name)
}

// dialConnection builds a Jira client for a stored connection.
func dialConnection(conn model.Connection) *jira.Client {
	return jira.NewClient(conn.ServerURL, conn.Email, conn.APIToken, jira.Options{})
}

// firstPerson picks the snapshot's person, sorted by id for determinism.
func firstPerson(snap *store.Snapshot) uuid.UUID {
	ids := make([]uuid.UUID, 0, len(snap.People))
	for id := range snap.People {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return uuid.Nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids[0]
}

// parseDate parses a YYYY-MM-DD flag value in loc.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}
