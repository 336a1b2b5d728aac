// Package export renders a period range as delimited text, one line per
// record no matter what the notes contain.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/peter-marien/grindsync/internal/issuekey"
	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/store"
)

const timestampLayout = "2006-01-02 15:04:05"

// Escape prepares one CSV field. Real line breaks become the literal
// two-character sequences \r\n, \n and \r so every record stays on one
// output line; quotes are doubled; fields containing a comma or quote
// are wrapped in quotes.
func Escape(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", `\r\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.TrimSpace(s)

	s = strings.ReplaceAll(s, `"`, `""`)
	if strings.ContainsAny(s, `,"`) {
		return `"` + s + `"`
	}
	return s
}

// Options controls an export run.
type Options struct {
	From            time.Time
	To              time.Time
	IncludeOriginal bool // append the un-cleaned work item title
	Now             time.Time
}

// Header returns the CSV header row.
func Header(includeOriginal bool) []string {
	h := []string{"Start of timeslice", "End of timeslice", "timeslice notes", "WorkItem", "Jira key"}
	if includeOriginal {
		h = append(h, "Original WorkItem")
	}
	return h
}

// Rows renders every period overlapping [From, To) as one escaped row,
// sorted by start time. The work item title is cleaned through the
// issue-key extractor; a stored issue-key attribute wins over the
// extracted one.
func Rows(snap *store.Snapshot, roles store.Roles, opts Options) [][]string {
	var periods []model.Period
	for _, p := range snap.Periods {
		start := p.Start
		end := p.EffectiveEnd(opts.Now)
		if !start.Before(opts.To) || !end.After(opts.From) {
			continue
		}
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })

	rows := make([][]string, 0, len(periods))
	for _, p := range periods {
		originalName := "Unknown"
		if item, ok := snap.Items[p.ItemID]; ok {
			originalName = item.Name
		}

		key := snap.ItemAttribute(roles.IssueKey(), p.ItemID)
		extracted, cleaned := issuekey.Extract(originalName)
		if key == "" {
			key = extracted
		}

		row := []string{
			Escape(p.Start.UTC().Format(timestampLayout)),
			Escape(p.EffectiveEnd(opts.Now).UTC().Format(timestampLayout)),
			Escape(p.Notes),
			Escape(cleaned),
			Escape(key),
		}
		if opts.IncludeOriginal {
			row = append(row, Escape(originalName))
		}
		rows = append(rows, row)
	}
	return rows
}

// Write renders the header plus all rows to w as UTF-8 CSV text.
func Write(w io.Writer, snap *store.Snapshot, roles store.Roles, opts Options) error {
	if _, err := fmt.Fprintln(w, strings.Join(Header(opts.IncludeOriginal), ",")); err != nil {
		return err
	}
	for _, row := range Rows(snap, roles, opts) {
		if _, err := fmt.Fprintln(w, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}
