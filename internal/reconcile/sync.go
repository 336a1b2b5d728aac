package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/peter-marien/grindsync/internal/jira"
	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/store"
)

// Dialer builds a client for a stored connection. Injected so tests can
// point clients at a local server.
type Dialer func(conn model.Connection) *jira.Client

// Syncer pushes local periods up to the remote tracker as work-logs.
type Syncer struct {
	store       store.Store
	roles       store.Roles
	connections []model.Connection
	dial        Dialer
	logger      *slog.Logger
}

// SyncerOptions configures optional Syncer dependencies.
type SyncerOptions struct {
	Logger *slog.Logger
}

// NewSyncer builds a Syncer over the stored connection list.
func NewSyncer(st store.Store, roles store.Roles, connections []model.Connection, dial Dialer, opts SyncerOptions) (*Syncer, error) {
	if st == nil || roles == nil || dial == nil {
		return nil, ErrNotReady
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:       st,
		roles:       roles,
		connections: connections,
		dial:        dial,
		logger:      logger,
	}, nil
}

// Report summarizes one sync batch. Failures are collected per item,
// never thrown; a skipped period is one that was never eligible, not
// one that failed.
type Report struct {
	Succeeded int
	Failed    int
	Skipped   int
	Errors    []ItemError
}

// SyncPeriods pushes every eligible period as a new remote work-log.
// A period is eligible when its work item carries both the issue-key
// and connection attributes and the connection name resolves; anything
// else is reported skipped. Pushes run strictly sequentially and
// independently, so one failure never aborts the batch.
//
// Nothing records which periods were already pushed, so re-running a
// sync over the same range creates duplicate remote work-logs.
func (s *Syncer) SyncPeriods(ctx context.Context, periods []model.Period) (Report, error) {
	var report Report

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return report, fmt.Errorf("reading snapshot: %w", err)
	}
	now := time.Now()

	clients := map[uuid.UUID]*jira.Client{}
	for _, p := range periods {
		label := s.periodLabel(snap, p)

		issueKey := snap.ItemAttribute(s.roles.IssueKey(), p.ItemID)
		connName := snap.ItemAttribute(s.roles.Connection(), p.ItemID)
		if issueKey == "" || connName == "" {
			s.logger.Debug("skipping period without linkage attributes", slog.String("period", label))
			report.Skipped++
			continue
		}

		conn, ok := s.connectionByName(connName)
		if !ok {
			s.logger.Debug("skipping period with unknown connection",
				slog.String("period", label),
				slog.String("connection", connName))
			report.Skipped++
			continue
		}

		seconds := int64(p.EffectiveEnd(now).Sub(p.Start).Seconds())
		if seconds <= 0 {
			report.Failed++
			report.Errors = append(report.Errors, ItemError{
				Item:    label,
				Message: "non-positive duration",
			})
			continue
		}

		client, ok := clients[conn.ID]
		if !ok {
			client = s.dial(conn)
			clients[conn.ID] = client
		}

		if err := client.PushWorklog(ctx, issueKey, p.Start, seconds, p.Notes); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ItemError{Item: label, Message: err.Error()})
			continue
		}
		report.Succeeded++
	}

	return report, nil
}

// connectionByName returns the first stored connection with the given
// display name. Names are not forced unique; the first match wins.
func (s *Syncer) connectionByName(name string) (model.Connection, bool) {
	for _, c := range s.connections {
		if c.Name == name {
			return c, true
		}
	}
	return model.Connection{}, false
}

func (s *Syncer) periodLabel(snap *store.Snapshot, p model.Period) string {
	name := "Unknown"
	if item, ok := snap.Items[p.ItemID]; ok {
		name = item.Name
	}
	return fmt.Sprintf("%s @ %s", name, p.Start.Format("2006-01-02 15:04"))
}
