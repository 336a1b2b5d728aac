package model

import (
	"time"

	"github.com/google/uuid"
)

// OpenEndHorizon is how far in the future a Period's end must lie to be
// considered "still running". The host store represents open periods with
// a sentinel end roughly 50 years ahead; any end beyond now+OpenEndHorizon
// is treated as "effective end = now" wherever durations are computed.
const OpenEndHorizon = 50 * 365 * 24 * time.Hour

// Connection holds the credentials for one Jira instance.
// The ID is generated once on creation; the Name is what work items
// reference through the "Jira Connection" attribute.
type Connection struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ServerURL string    `json:"server_url"`
	Email     string    `json:"email"`
	APIToken  string    `json:"api_token"`
}

// Person is someone periods are correlated with.
type Person struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// WorkItem is a unit of trackable work in the local store.
type WorkItem struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Notes string    `json:"notes"`
}

// Period is a time interval a person spent on a work item.
type Period struct {
	ID       uuid.UUID `json:"id"`
	ItemID   uuid.UUID `json:"item_id"`
	PersonID uuid.UUID `json:"person_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Notes    string    `json:"notes"`
}

// Open reports whether p's end is the far-future sentinel, i.e. the
// period is still running at the evaluation instant.
func (p Period) Open(now time.Time) bool {
	return p.End.After(now.Add(OpenEndHorizon))
}

// EffectiveEnd returns p.End with the open-period sentinel clipped to now.
// The raw end is never mutated; callers clip locally.
func (p Period) EffectiveEnd(now time.Time) time.Time {
	if p.Open(now) {
		return now
	}
	return p.End
}

// RemoteWorklog is a transient work-log record fetched from the tracker.
// Equality for deduplication is (IssueKey, Started, Seconds).
type RemoteWorklog struct {
	IssueKey     string
	IssueSummary string
	Comment      string
	Started      time.Time
	Seconds      int64
}

// Attribute is a custom attribute definition in the local store,
// looked up by display name (see store.Role).
type Attribute struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
