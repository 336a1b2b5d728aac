package jira

import "github.com/peter-marien/grindsync/internal/model"

// sameWorklog is the dedup identity: issue key, start instant, duration.
// The key being part of the tuple keeps distinct same-second same-length
// work-logs on different issues apart.
func sameWorklog(a, b model.RemoteWorklog) bool {
	return a.IssueKey == b.IssueKey &&
		a.Started.Equal(b.Started) &&
		a.Seconds == b.Seconds
}

// Dedup merges work-log sequences from the two query paths into a unique
// set, preserving first-insertion order. Linear scan per candidate;
// quadratic, which is fine at the tens-of-entries sizes involved.
func Dedup(sources ...[]model.RemoteWorklog) []model.RemoteWorklog {
	var out []model.RemoteWorklog
	for _, src := range sources {
		for _, cand := range src {
			dup := false
			for _, have := range out {
				if sameWorklog(have, cand) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, cand)
			}
		}
	}
	return out
}
