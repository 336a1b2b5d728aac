package jira_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peter-marien/grindsync/internal/jira"
	"github.com/peter-marien/grindsync/internal/model"
)

func wl(key string, started time.Time, seconds int64) model.RemoteWorklog {
	return model.RemoteWorklog{IssueKey: key, Started: started, Seconds: seconds}
}

func TestDedupMergesBothPaths(t *testing.T) {
	at := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	a := []model.RemoteWorklog{
		wl("PFTI-1", at, 3600),
		wl("PFTI-2", at.Add(time.Hour), 1800),
	}
	b := []model.RemoteWorklog{
		wl("PFTI-2", at.Add(time.Hour), 1800), // duplicate of a[1]
		wl("PFTI-3", at.Add(2*time.Hour), 900),
	}

	got := jira.Dedup(a, b)
	require.Len(t, got, 3)
	require.Equal(t, "PFTI-1", got[0].IssueKey)
	require.Equal(t, "PFTI-2", got[1].IssueKey)
	require.Equal(t, "PFTI-3", got[2].IssueKey)
}

func TestDedupIsIdempotent(t *testing.T) {
	at := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	in := []model.RemoteWorklog{
		wl("PFTI-1", at, 3600),
		wl("PFTI-2", at, 3600),
		wl("PFTI-1", at.Add(time.Hour), 600),
	}

	once := jira.Dedup(in)
	twice := jira.Dedup(once)
	require.Equal(t, once, twice)
}

func TestDedupKeepsSameSecondDifferentIssues(t *testing.T) {
	// Same start, same duration, different issues: distinct work-logs,
	// never collapsed.
	at := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	got := jira.Dedup(
		[]model.RemoteWorklog{wl("PFTI-1", at, 3600)},
		[]model.RemoteWorklog{wl("PFTI-2", at, 3600)},
	)
	require.Len(t, got, 2)
}

func TestDedupTreatsEqualInstantsAcrossZones(t *testing.T) {
	utc := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	cet := utc.In(time.FixedZone("CET", 3600))

	got := jira.Dedup(
		[]model.RemoteWorklog{wl("PFTI-1", utc, 3600)},
		[]model.RemoteWorklog{wl("PFTI-1", cet, 3600)},
	)
	require.Len(t, got, 1)
}
