// Package reconcile maps remote work-logs onto local work items and
// periods, and pushes local periods back to the remote tracker.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peter-marien/grindsync/internal/jira"
	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/store"
)

// Importer turns remote work-logs from one connection into local work
// items and periods.
type Importer struct {
	store          store.Store
	roles          store.Roles
	client         *jira.Client
	connectionName string
	logger         *slog.Logger
}

// ImporterOptions configures optional Importer dependencies.
type ImporterOptions struct {
	Logger *slog.Logger
}

// NewImporter builds an Importer for one connection.
func NewImporter(st store.Store, roles store.Roles, client *jira.Client, connectionName string, opts ImporterOptions) (*Importer, error) {
	if st == nil || client == nil || roles == nil {
		return nil, ErrNotReady
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:          st,
		roles:          roles,
		client:         client,
		connectionName: connectionName,
		logger:         logger,
	}, nil
}

// FindOrCreateWorkItem returns the id of the work item tagged with the
// given issue key, creating it when absent. Existing items are returned
// unchanged; no metadata refresh happens on a hit. Creation commits its
// own change-set eagerly.
//
// The lookup and the apply are two separate store round-trips, so two
// callers racing on the same issue key can both miss the lookup and
// create duplicate items. Best-effort only; there is one logical writer
// per user session.
func (im *Importer) FindOrCreateWorkItem(ctx context.Context, issueKey, issueSummary string) (uuid.UUID, error) {
	if issueKey == "" {
		return uuid.Nil, &ValidationError{Field: "issue key", Msg: "must not be empty"}
	}

	snap, err := im.store.Snapshot(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading snapshot: %w", err)
	}

	for key, value := range snap.AttributeValues {
		if key.AttributeID == im.roles.IssueKey() && value == issueKey {
			return key.ItemID, nil
		}
	}

	// Absent: pull the full issue so the new item's notes carry its
	// type/status/priority and description.
	issue, err := im.client.FetchIssue(ctx, issueKey)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fetching issue %s: %w", issueKey, err)
	}
	summary := issue.Summary
	if summary == "" {
		summary = issueSummary
	}

	item := model.WorkItem{
		ID:    uuid.New(),
		Name:  fmt.Sprintf("[%s] %s", issueKey, summary),
		Notes: issueNotes(issue),
	}

	target := snap.Clone()
	target.Items[item.ID] = item
	target.AttributeValues[store.AttrKey{AttributeID: im.roles.IssueKey(), ItemID: item.ID}] = issueKey
	target.AttributeValues[store.AttrKey{AttributeID: im.roles.Connection(), ItemID: item.ID}] = im.connectionName

	if err := im.store.Apply(ctx, store.Diff(snap, target)); err != nil {
		return uuid.Nil, fmt.Errorf("creating work item for %s: %w", issueKey, err)
	}

	im.logger.Info("created work item",
		slog.String("issue", issueKey),
		slog.String("name", item.Name))
	return item.ID, nil
}

func issueNotes(issue *jira.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", issue.Type)
	fmt.Fprintf(&b, "Status: %s\n", issue.Status)
	fmt.Fprintf(&b, "Priority: %s\n", issue.Priority)
	if issue.Description != "" {
		b.WriteString("\n")
		b.WriteString(issue.Description)
	}
	return b.String()
}

// ImportResult summarizes one work-log import batch.
type ImportResult struct {
	Imported int
	Failed   int
	Errors   []ItemError
}

// ImportWorklogs creates one local period per remote work-log for the
// given person. Work-item resolution commits eagerly per issue; all new
// periods are merged into a single change-set applied once at the end,
// so transient per-item bookkeeping never leaves a partial batch behind.
// Per-item resolution failures are collected, not thrown; only a failed
// final apply aborts the batch.
func (im *Importer) ImportWorklogs(ctx context.Context, worklogs []model.RemoteWorklog, personID uuid.UUID) (ImportResult, error) {
	var result ImportResult

	if personID == uuid.Nil {
		return result, &ValidationError{Field: "person", Msg: "no person to correlate periods with"}
	}

	var periods []model.Period
	for _, wl := range worklogs {
		itemID, err := im.FindOrCreateWorkItem(ctx, wl.IssueKey, wl.IssueSummary)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				Item:    fmt.Sprintf("%s @ %s", wl.IssueKey, wl.Started.Format(time.RFC3339)),
				Message: err.Error(),
			})
			continue
		}
		periods = append(periods, model.Period{
			ID:       uuid.New(),
			ItemID:   itemID,
			PersonID: personID,
			Start:    wl.Started,
			End:      wl.Started.Add(time.Duration(wl.Seconds) * time.Second),
			Notes:    wl.Comment,
		})
	}

	if len(periods) == 0 {
		return result, nil
	}

	snap, err := im.store.Snapshot(ctx)
	if err != nil {
		return result, fmt.Errorf("reading snapshot: %w", err)
	}
	target := snap.Clone()
	for _, p := range periods {
		target.Periods[p.ID] = p
	}
	if err := im.store.Apply(ctx, store.Diff(snap, target)); err != nil {
		return result, fmt.Errorf("saving imported periods: %w", err)
	}

	result.Imported = len(periods)
	return result, nil
}
