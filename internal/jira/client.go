package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/timecalc"
)

// startedLayout is the timestamp format the tracker uses for work-log
// start times, e.g. "2026-02-27T09:00:00.000+0100".
const startedLayout = "2006-01-02T15:04:05.000-0700"

// Client talks to one Jira Cloud instance. Every request carries Basic
// auth built from email:token; the client itself is stateless.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Options configures optional client dependencies.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a client for the given instance and credentials.
func NewClient(serverURL, email, apiToken string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: hc,
		logger:     logger,
	}
}

// do performs one authenticated request and returns the status code and
// raw body. Transport failures come back as *NetworkError; status
// interpretation is left to the caller.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{Op: "reading " + path, Err: err}
	}
	return resp.StatusCode, data, nil
}

// get performs a GET and decodes a 2xx JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	status, data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &HTTPError{Status: status, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// TestConnection probes /myself with the configured credentials.
// Auth failures return (false, nil); only transport and unexpected
// server errors are returned as errors.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	status, data, err := c.do(ctx, http.MethodGet, "/rest/api/3/myself", nil, nil)
	if err != nil {
		return false, err
	}
	switch {
	case status >= 200 && status < 300:
		return true, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return false, nil
	default:
		return false, &HTTPError{Status: status, Body: string(data)}
	}
}

// Issue is the subset of an issue this engine consumes.
type Issue struct {
	Key         string
	Summary     string
	Description string
	Type        string
	Status      string
	Priority    string
}

type issueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string    `json:"summary"`
		Description *Document `json:"description"`
		IssueType   struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority *struct {
			Name string `json:"name"`
		} `json:"priority"`
	} `json:"fields"`
}

// FetchIssue retrieves one issue by key. The rich-text description is
// flattened to plain text. A missing priority defaults to "None".
// Unknown keys satisfy errors.Is(err, ErrNotFound).
func (c *Client) FetchIssue(ctx context.Context, issueKey string) (*Issue, error) {
	var raw issueResponse
	if err := c.get(ctx, "/rest/api/3/issue/"+url.PathEscape(issueKey), nil, &raw); err != nil {
		return nil, err
	}
	issue := &Issue{
		Key:         raw.Key,
		Summary:     raw.Fields.Summary,
		Description: raw.Fields.Description.PlainText(),
		Type:        raw.Fields.IssueType.Name,
		Status:      raw.Fields.Status.Name,
		Priority:    "None",
	}
	if raw.Fields.Priority != nil && raw.Fields.Priority.Name != "" {
		issue.Priority = raw.Fields.Priority.Name
	}
	return issue, nil
}

// worklog is the wire shape of one work-log entry.
type worklog struct {
	ID     string `json:"id"`
	Author struct {
		EmailAddress string `json:"emailAddress"`
	} `json:"author"`
	Comment          *Document `json:"comment"`
	Started          string    `json:"started"`
	TimeSpentSeconds int64     `json:"timeSpentSeconds"`
}

type worklogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []worklog `json:"worklogs"`
}

type updatedWorklogRef struct {
	WorklogID int64  `json:"worklogId"`
	IssueKey  string `json:"issueKey"`
}

type updatedFeed struct {
	Values   []updatedWorklogRef `json:"values"`
	LastPage bool                `json:"lastPage"`
	NextPage string              `json:"nextPage"`
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	MaxResults int      `json:"maxResults"`
}

type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// keep reports whether wl was started by the caller on the target date
// (calendar-day compare in UTC) and converts it when it passes.
func (c *Client) keep(wl worklog, issueKey, summary string, date time.Time) (model.RemoteWorklog, bool) {
	if !strings.EqualFold(wl.Author.EmailAddress, c.email) {
		return model.RemoteWorklog{}, false
	}
	started, err := time.Parse(startedLayout, wl.Started)
	if err != nil {
		c.logger.Warn("skipping worklog with unparseable start",
			slog.String("issue", issueKey),
			slog.String("started", wl.Started))
		return model.RemoteWorklog{}, false
	}
	if !timecalc.SameUTCDay(started, date) {
		return model.RemoteWorklog{}, false
	}
	return model.RemoteWorklog{
		IssueKey:     issueKey,
		IssueSummary: summary,
		Comment:      wl.Comment.PlainText(),
		Started:      started,
		Seconds:      wl.TimeSpentSeconds,
	}, true
}

// fetchUpdatedSince walks the updated-work-logs feed from the given
// instant and returns the caller's work-logs started on date.
func (c *Client) fetchUpdatedSince(ctx context.Context, since, date time.Time) ([]model.RemoteWorklog, error) {
	var out []model.RemoteWorklog

	query := url.Values{"since": {fmt.Sprintf("%d", since.UnixMilli())}}
	path := "/rest/api/3/worklog/updated"
	for {
		var page updatedFeed
		if err := c.get(ctx, path, query, &page); err != nil {
			return nil, err
		}
		for _, ref := range page.Values {
			var wl worklog
			detail := fmt.Sprintf("/rest/api/3/issue/%s/worklog/%d", url.PathEscape(ref.IssueKey), ref.WorklogID)
			if err := c.get(ctx, detail, nil, &wl); err != nil {
				return nil, err
			}
			if rw, ok := c.keep(wl, ref.IssueKey, "", date); ok {
				out = append(out, rw)
			}
		}
		if page.LastPage || page.NextPage == "" {
			break
		}
		// nextPage is an absolute URL; reuse its path and query.
		next, err := url.Parse(page.NextPage)
		if err != nil {
			return nil, fmt.Errorf("parsing feed next page: %w", err)
		}
		path, query = next.Path, next.Query()
	}
	return out, nil
}

// fetchIssueWorklogs lists all work-logs of one issue, following the
// startAt paging of the worklogs envelope.
func (c *Client) fetchIssueWorklogs(ctx context.Context, issueKey string) ([]worklog, error) {
	var all []worklog
	startAt := 0
	for {
		var page worklogPage
		query := url.Values{"startAt": {fmt.Sprintf("%d", startAt)}}
		if err := c.get(ctx, "/rest/api/3/issue/"+url.PathEscape(issueKey)+"/worklog", query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Worklogs...)
		startAt += len(page.Worklogs)
		if len(page.Worklogs) == 0 || startAt >= page.Total {
			break
		}
	}
	return all, nil
}

// FetchWorklogsForDate returns the caller's work-logs started on the
// given calendar date, merged from the two query paths the API offers.
// Neither the updated-work-logs feed nor a JQL search is complete on its
// own, and both can surface the same record, so the union is
// deduplicated before returning.
func (c *Client) FetchWorklogsForDate(ctx context.Context, date time.Time) ([]model.RemoteWorklog, error) {
	// The calendar date names the target UTC day directly. Converting
	// the instant first would shift eastern-zone midnights back a day.
	year, month, day := date.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	fromFeed, err := c.fetchUpdatedSince(ctx, dayStart, dayStart)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("updated-worklogs feed",
		slog.String("date", dayStart.Format("2006-01-02")),
		slog.Int("kept", len(fromFeed)))

	jql := fmt.Sprintf("worklogDate = %s AND worklogAuthor = currentUser()", dayStart.Format("2006-01-02"))
	var search searchResponse
	status, data, err := c.do(ctx, http.MethodPost, "/rest/api/3/search/jql", nil, searchRequest{
		JQL:        jql,
		Fields:     []string{"summary"},
		MaxResults: 100,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPError{Status: status, Body: string(data)}
	}
	if err := json.Unmarshal(data, &search); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	var fromSearch []model.RemoteWorklog
	for _, issue := range search.Issues {
		wls, err := c.fetchIssueWorklogs(ctx, issue.Key)
		if err != nil {
			return nil, err
		}
		for _, wl := range wls {
			if rw, ok := c.keep(wl, issue.Key, issue.Fields.Summary, dayStart); ok {
				fromSearch = append(fromSearch, rw)
			}
		}
	}
	c.logger.Debug("jql search path", slog.Int("kept", len(fromSearch)))

	return Dedup(fromFeed, fromSearch), nil
}

type worklogCreate struct {
	Started          string    `json:"started"`
	TimeSpentSeconds int64     `json:"timeSpentSeconds"`
	Comment          *Document `json:"comment,omitempty"`
}

// PushWorklog creates a new remote work-log on the given issue. The
// comment is wrapped in a single-paragraph rich-text document. Non-2xx
// responses surface the status code and raw error body.
func (c *Client) PushWorklog(ctx context.Context, issueKey string, started time.Time, seconds int64, comment string) error {
	body := worklogCreate{
		Started:          started.Format(startedLayout),
		TimeSpentSeconds: seconds,
	}
	if comment != "" {
		body.Comment = NewDocument(comment)
	}

	status, data, err := c.do(ctx, http.MethodPost,
		"/rest/api/3/issue/"+url.PathEscape(issueKey)+"/worklog", nil, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &HTTPError{Status: status, Body: string(data)}
	}
	c.logger.Debug("pushed worklog",
		slog.String("issue", issueKey),
		slog.Int64("seconds", seconds))
	return nil
}
