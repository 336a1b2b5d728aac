package jira_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-marien/grindsync/internal/jira"
)

const (
	testEmail = "dev@acme.test"
	testToken = "secret-token"
)

func newTestClient(t *testing.T, handler http.Handler) *jira.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return jira.NewClient(srv.URL, testEmail, testToken, jira.Options{})
}

func requireBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()
	user, pass, ok := r.BasicAuth()
	require.True(t, ok, "missing basic auth")
	require.Equal(t, testEmail, user)
	require.Equal(t, testToken, pass)
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{"ok", http.StatusOK, true, false},
		{"unauthorized", http.StatusUnauthorized, false, false},
		{"forbidden", http.StatusForbidden, false, false},
		{"server error", http.StatusBadGateway, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requireBasicAuth(t, r)
				assert.Equal(t, "/rest/api/3/myself", r.URL.Path)
				w.WriteHeader(tt.status)
			}))

			ok, err := c.TestConnection(context.Background())
			if tt.wantErr {
				var httpErr *jira.HTTPError
				require.ErrorAs(t, err, &httpErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestTestConnectionNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	c := jira.NewClient(srv.URL, testEmail, testToken, jira.Options{})
	_, err := c.TestConnection(context.Background())

	var netErr *jira.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestFetchIssue(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		require.Equal(t, "/rest/api/3/issue/PFTI-92", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"key": "PFTI-92",
			"fields": {
				"summary": "Create Payment",
				"description": {
					"type": "doc", "version": 1,
					"content": [
						{"type": "paragraph", "content": [{"type": "text", "text": "Implement the payment flow."}]},
						{"type": "paragraph", "content": [{"type": "text", "text": "See the design doc."}]}
					]
				},
				"issuetype": {"name": "Story"},
				"status": {"name": "In Progress"},
				"priority": null
			}
		}`))
	}))

	issue, err := c.FetchIssue(context.Background(), "PFTI-92")
	require.NoError(t, err)
	require.Equal(t, "PFTI-92", issue.Key)
	require.Equal(t, "Create Payment", issue.Summary)
	require.Equal(t, "Implement the payment flow.\nSee the design doc.", issue.Description)
	require.Equal(t, "Story", issue.Type)
	require.Equal(t, "In Progress", issue.Status)
	require.Equal(t, "None", issue.Priority, "missing priority defaults to None")
}

func TestFetchIssueNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	}))

	_, err := c.FetchIssue(context.Background(), "NOPE-1")
	require.ErrorIs(t, err, jira.ErrNotFound)

	var httpErr *jira.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Status)
}

// worklogJSON renders one work-log entry as the API returns it.
func worklogJSON(id, email, started string, seconds int64, comment string) map[string]any {
	return map[string]any{
		"id":               id,
		"author":           map[string]any{"emailAddress": email},
		"started":          started,
		"timeSpentSeconds": seconds,
		"comment": map[string]any{
			"type": "doc", "version": 1,
			"content": []any{map[string]any{
				"type":    "paragraph",
				"content": []any{map[string]any{"type": "text", "text": comment}},
			}},
		},
	}
}

func TestFetchWorklogsForDate(t *testing.T) {
	date := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/worklog/updated", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"values":   []any{map[string]any{"worklogId": 101, "issueKey": "PFTI-1"}},
			"lastPage": true,
		})
	})
	mux.HandleFunc("/rest/api/3/issue/PFTI-1/worklog/101", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(worklogJSON("101", testEmail, "2026-02-27T09:00:00.000+0000", 3600, "pairing"))
	})
	mux.HandleFunc("/rest/api/3/search/jql", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "worklogDate = 2026-02-27")
		assert.Contains(t, string(body), "worklogAuthor = currentUser()")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issues": []any{
				map[string]any{"key": "PFTI-1", "fields": map[string]any{"summary": "First issue"}},
				map[string]any{"key": "PFTI-2", "fields": map[string]any{"summary": "Second issue"}},
			},
		})
	})
	mux.HandleFunc("/rest/api/3/issue/PFTI-1/worklog", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 3,
			"worklogs": []any{
				// Same work-log the feed already surfaced.
				worklogJSON("101", testEmail, "2026-02-27T09:00:00.000+0000", 3600, "pairing"),
				// Someone else's entry: filtered out.
				worklogJSON("102", "other@acme.test", "2026-02-27T10:00:00.000+0000", 600, "not mine"),
				// Wrong day: filtered out.
				worklogJSON("103", testEmail, "2026-02-26T09:00:00.000+0000", 600, "yesterday"),
			},
		})
	})
	mux.HandleFunc("/rest/api/3/issue/PFTI-2/worklog", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"worklogs": []any{
				// Started late on the 27th in a +02:00 zone: still the
				// 27th in UTC? 23:30+02:00 is 21:30 UTC, so yes.
				worklogJSON("201", testEmail, "2026-02-27T23:30:00.000+0200", 1800, "late fix"),
			},
		})
	})

	c := newTestClient(t, mux)
	got, err := c.FetchWorklogsForDate(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, got, 2, "feed+search overlap must be deduplicated")

	require.Equal(t, "PFTI-1", got[0].IssueKey)
	require.Equal(t, "pairing", got[0].Comment)
	require.EqualValues(t, 3600, got[0].Seconds)
	require.True(t, got[0].Started.Equal(time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)))

	require.Equal(t, "PFTI-2", got[1].IssueKey)
	require.Equal(t, "Second issue", got[1].IssueSummary)
	require.EqualValues(t, 1800, got[1].Seconds)
}

// A --date flag parsed at midnight in an eastern zone is still an
// instant on the previous UTC day; the calendar date must win.
func TestFetchWorklogsForDateEasternZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	date := time.Date(2026, 2, 27, 0, 0, 0, 0, loc)

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/worklog/updated", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"values": []any{}, "lastPage": true})
	})
	mux.HandleFunc("/rest/api/3/search/jql", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "worklogDate = 2026-02-27")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issues": []any{
				map[string]any{"key": "PFTI-1", "fields": map[string]any{"summary": "First issue"}},
			},
		})
	})
	mux.HandleFunc("/rest/api/3/issue/PFTI-1/worklog", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"worklogs": []any{
				worklogJSON("301", testEmail, "2026-02-27T12:00:00.000+0000", 3600, "target day"),
				// The previous UTC day, which the un-normalized instant
				// would have selected.
				worklogJSON("302", testEmail, "2026-02-26T23:00:00.000+0000", 600, "day before"),
			},
		})
	})

	c := newTestClient(t, mux)
	got, err := c.FetchWorklogsForDate(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "target day", got[0].Comment)
}

func TestPushWorklog(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/api/3/issue/PFTI-92/worklog", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))

	started := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	err := c.PushWorklog(context.Background(), "PFTI-92", started, 5400, "pairing session")
	require.NoError(t, err)

	require.Equal(t, "2026-02-27T09:00:00.000+0000", gotBody["started"])
	require.EqualValues(t, 5400, gotBody["timeSpentSeconds"])

	comment, ok := gotBody["comment"].(map[string]any)
	require.True(t, ok, "comment must be a rich-text document")
	require.Equal(t, "doc", comment["type"])
}

func TestPushWorklogHTTPError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["worklog time cannot be zero"]}`, http.StatusBadRequest)
	}))

	err := c.PushWorklog(context.Background(), "PFTI-92", time.Now(), 0, "")

	var httpErr *jira.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Status)
	require.Contains(t, httpErr.Body, "worklog time cannot be zero")
}
