package teamwork

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// preferredPageSize is used by the first, richest task query.
const preferredPageSize = 500

// TaskQuery selects the tasks of one project.
type TaskQuery struct {
	ProjectID        string
	IncludeCompleted bool
}

// Account is the result of a connection test.
type Account struct {
	Name     string   `json:"name"`
	AuthMode AuthMode `json:"auth_mode"`
}

// TestConnection reads the account to check credentials.
func (c *Client) TestConnection(ctx context.Context) (Account, error) {
	obj, err := c.getJSON(ctx, "/account.json", nil, c.opts.PeopleTimeout)
	if err != nil {
		return Account{AuthMode: c.ActiveAuth()}, fmt.Errorf("testing connection: %w", err)
	}
	acc := Account{AuthMode: c.ActiveAuth()}
	if m, ok := obj["account"].(map[string]any); ok {
		acc.Name = stringOf(m, "name")
	}
	return acc, nil
}

// Projects lists projects sorted by name.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	obj, err := c.getJSON(ctx, "/projects.json", nil, c.opts.PeopleTimeout)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	var out []Project
	for _, m := range listOf(obj, projectListKeys) {
		out = append(out, normalizeProject(m))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Tasks fetches every task of a project, following pages until a short
// page. The first query asks for tags and nested subtasks; when it fails
// or returns nothing a plainer query is tried.
func (c *Client) Tasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	if strings.TrimSpace(q.ProjectID) == "" {
		return nil, fmt.Errorf("listing tasks: %w", ErrMissingTarget)
	}

	status, completed := "active", "false"
	if q.IncludeCompleted {
		status, completed = "all", "true"
	}
	preferred := url.Values{
		"include":               {"tags,subTasks"},
		"nestSubTasks":          {"true"},
		"pageSize":              {strconv.Itoa(preferredPageSize)},
		"status":                {status},
		"includeCompletedTasks": {completed},
	}
	tasks, err := c.taskPages(ctx, q.ProjectID, preferred)
	if err == nil && len(tasks) > 0 {
		return tasks, nil
	}
	if err != nil {
		c.logger.Debug("rich task query failed, trying plain query", "project_id", q.ProjectID, "error", err)
	}

	plain := url.Values{
		"include":  {"tags"},
		"pageSize": {strconv.Itoa(c.opts.PageSize)},
	}
	tasks, plainErr := c.taskPages(ctx, q.ProjectID, plain)
	if plainErr != nil {
		if err == nil {
			err = plainErr
		}
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// reducedParams are dropped when a page request is rejected.
var reducedParams = []string{"include", "nestSubTasks", "status", "includeCompletedTasks"}

func (c *Client) taskPages(ctx context.Context, projectID string, params url.Values) ([]Task, error) {
	path := "/projects/" + url.PathEscape(projectID) + "/tasks.json"
	pageSize, _ := strconv.Atoi(params.Get("pageSize"))
	if pageSize <= 0 {
		pageSize = c.opts.PageSize
	}

	var all []Task
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := cloneValues(params)
		q.Set("page", strconv.Itoa(page))

		obj, err := c.getJSON(ctx, path, q, c.opts.FetchTimeout)
		if err != nil {
			for _, k := range reducedParams {
				q.Del(k)
			}
			obj, err = c.getJSON(ctx, path, q, c.opts.FetchTimeout)
			if err != nil {
				return nil, err
			}
		}

		items := listOf(obj, taskListKeys)
		for _, m := range items {
			all = append(all, normalizeTask(m))
		}
		if len(items) < pageSize {
			return all, nil
		}
	}
}

// People lists the members of a project sorted by name.
func (c *Client) People(ctx context.Context, projectID string) ([]Person, error) {
	path := "/projects/" + url.PathEscape(projectID) + "/people.json"
	obj, err := c.getJSON(ctx, path, nil, c.opts.PeopleTimeout)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	var out []Person
	for _, m := range listOf(obj, peopleListKeys) {
		if p, ok := normalizePerson(m); ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// TimeEntries lists the entries already logged on a task for one day.
// date is YYYYMMDD or YYYY-MM-DD.
func (c *Client) TimeEntries(ctx context.Context, taskID, date string) ([]TimeEntry, error) {
	ymd := strings.ReplaceAll(date, "-", "")
	q := url.Values{"taskId": {taskID}, "fromDate": {ymd}, "toDate": {ymd}}
	obj, err := c.getJSON(ctx, "/time_entries.json", q, c.opts.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("listing time entries: %w", err)
	}
	var out []TimeEntry
	for _, m := range listOf(obj, entryListKeys) {
		out = append(out, normalizeEntry(m))
	}
	return out, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
