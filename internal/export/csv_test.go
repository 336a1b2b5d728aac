package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-marien/grindsync/internal/export"
	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/store"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"", ""},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"line1\r\nline2", `line1\r\nline2`},
		{"line1\nline2", `line1\nline2`},
		{"line1\rline2", `line1\rline2`},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		got := export.Escape(tt.input)
		if got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// unescape reverses the deliberate escaping rules so the round-trip
// property can be asserted.
func unescape(field string) string {
	if strings.HasPrefix(field, `"`) && strings.HasSuffix(field, `"`) {
		field = field[1 : len(field)-1]
	}
	field = strings.ReplaceAll(field, `""`, `"`)
	field = strings.ReplaceAll(field, `\r\n`, "\r\n")
	field = strings.ReplaceAll(field, `\n`, "\n")
	field = strings.ReplaceAll(field, `\r`, "\r")
	return field
}

func TestEscapeRoundTrip(t *testing.T) {
	original := "line one\r\nline two, with a \"quoted\" part"

	escaped := export.Escape(original)
	require.NotContains(t, escaped, "\n", "escaped field must stay on one line")
	require.NotContains(t, escaped, "\r")
	require.Equal(t, original, unescape(escaped))
}

type fixture struct {
	snap  *store.Snapshot
	roles store.Roles
}

func newFixture() *fixture {
	snap := store.NewSnapshot()
	roles := store.Roles{store.RoleIssueKey: uuid.New(), store.RoleConnection: uuid.New()}
	return &fixture{snap: snap, roles: roles}
}

func (f *fixture) addItem(name, issueKey string) uuid.UUID {
	item := model.WorkItem{ID: uuid.New(), Name: name}
	f.snap.Items[item.ID] = item
	if issueKey != "" {
		f.snap.AttributeValues[store.AttrKey{AttributeID: f.roles.IssueKey(), ItemID: item.ID}] = issueKey
	}
	return item.ID
}

func (f *fixture) addPeriod(itemID uuid.UUID, start, end time.Time, notes string) {
	p := model.Period{ID: uuid.New(), ItemID: itemID, Start: start, End: end, Notes: notes}
	f.snap.Periods[p.ID] = p
}

func TestRows(t *testing.T) {
	f := newFixture()
	// Attribute key beats the extracted one.
	withAttr := f.addItem("PFTI-092 - Create Payment", "JIRA-777")
	// No attribute: the extracted key is the fallback.
	extracted := f.addItem("[PFTI-093] Verlof", "")
	// Neither: empty key, title unchanged.
	plain := f.addItem("Miscellaneous task", "")

	f.addPeriod(withAttr,
		time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 27, 10, 30, 0, 0, time.UTC),
		"notes, with a comma\nand a newline")
	f.addPeriod(extracted,
		time.Date(2026, 2, 27, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC), "")
	f.addPeriod(plain,
		time.Date(2026, 2, 27, 13, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 27, 13, 45, 0, 0, time.UTC), "")
	// Outside the range: excluded.
	f.addPeriod(plain,
		time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), "")

	opts := export.Options{
		From:            time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
		To:              time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		IncludeOriginal: true,
		Now:             time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	rows := export.Rows(f.snap, f.roles, opts)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"2026-02-27 09:00:00",
		"2026-02-27 10:30:00",
		`"notes, with a comma\nand a newline"`,
		"Create Payment",
		"JIRA-777",
		"PFTI-092 - Create Payment",
	}, rows[0])

	assert.Equal(t, "Verlof", rows[1][3])
	assert.Equal(t, "PFTI-093", rows[1][4])

	assert.Equal(t, "Miscellaneous task", rows[2][3])
	assert.Equal(t, "", rows[2][4])
}

func TestRowsClipsOpenPeriodToNow(t *testing.T) {
	f := newFixture()
	item := f.addItem("Ongoing work", "")
	now := time.Date(2026, 2, 27, 15, 0, 0, 0, time.UTC)
	f.addPeriod(item,
		time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC),
		now.AddDate(51, 0, 0), "")

	rows := export.Rows(f.snap, f.roles, export.Options{
		From: time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Now:  now,
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-02-27 15:00:00", rows[0][1], "open period end renders as now")
}

func TestWriteProducesOneLinePerRecord(t *testing.T) {
	f := newFixture()
	item := f.addItem("PFTI-092 - Create Payment", "")
	f.addPeriod(item,
		time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC),
		"first\r\nsecond \"quoted\", done")

	var buf strings.Builder
	opts := export.Options{
		From:            time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
		To:              time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		IncludeOriginal: false,
		Now:             time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, export.Write(&buf, f.snap, f.roles, opts))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2, "header plus exactly one record line")
	assert.Equal(t, "Start of timeslice,End of timeslice,timeslice notes,WorkItem,Jira key", lines[0])
	assert.Contains(t, lines[1], `\r\n`)
}
