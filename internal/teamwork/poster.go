package teamwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/apontador/internal/observability"
)

// maxReportedAttempts is how many failed attempts a PostError keeps.
const maxReportedAttempts = 3

// Entry is the input for one time-entry post.
type Entry struct {
	Date        string // dd/mm/yyyy
	Start       string // HH:MM:SS
	Total       string // H:MM:SS
	Billable    bool
	Description string
	TaskID      string
	PersonID    string
	ProjectID   string
}

// PostResult describes the accepted attempt.
type PostResult struct {
	EntryID  string         `json:"entry_id,omitempty"`
	Endpoint string         `json:"endpoint"`
	Variant  string         `json:"variant"`
	Status   int            `json:"status"`
	Tried    int            `json:"tried"`
	Response map[string]any `json:"response,omitempty"`
}

// PayloadVariant is one request body shape accepted by some Teamwork
// deployments. Variants are tried in table order.
type PayloadVariant struct {
	Name         string
	Camel        bool // taskId/userId/isBillable instead of task-id/person-id/isbillable
	ISODate      bool // YYYY-MM-DD instead of YYYYMMDD
	Decimal      bool // "hours": "1.50" instead of hours + minutes
	WithTime     bool // include the "time" start field
	BillAsString bool // "1"/"0" instead of 1/0 (kebab only)
}

// PayloadVariants is the fixed order of body shapes.
var PayloadVariants = []PayloadVariant{
	{Name: "kebab-num-int-time-billint", WithTime: true},
	{Name: "kebab-num-int-time-billstr", WithTime: true, BillAsString: true},
	{Name: "kebab-iso-int-time-billint", ISODate: true, WithTime: true},
	{Name: "kebab-num-dec-time-billint", Decimal: true, WithTime: true},
	{Name: "camel-num-int-time", Camel: true, WithTime: true},
	{Name: "camel-num-dec-time", Camel: true, Decimal: true, WithTime: true},
	{Name: "kebab-num-int-notime-billint"},
	{Name: "camel-num-int-notime", Camel: true},
}

// entryFields are the derived values every variant draws from.
type entryFields struct {
	dateNum     string
	dateISO     string
	timeHM      string
	hours       int
	minutes     int
	decimal     string
	billable    bool
	description string
	taskID      int64
	personID    int64
}

// build returns the inner time-entry object for f with empty values removed.
func (v PayloadVariant) build(f entryFields) map[string]any {
	te := map[string]any{
		"date":        f.dateNum,
		"description": f.description,
	}
	if v.ISODate {
		te["date"] = f.dateISO
	}
	if v.WithTime {
		te["time"] = f.timeHM
	}
	if v.Decimal {
		te["hours"] = f.decimal
	} else {
		te["hours"] = f.hours
		te["minutes"] = f.minutes
	}

	switch {
	case v.Camel:
		te["isBillable"] = f.billable
	case v.BillAsString:
		te["isbillable"] = map[bool]string{true: "1", false: "0"}[f.billable]
	default:
		te["isbillable"] = map[bool]int{true: 1, false: 0}[f.billable]
	}

	taskKey, personKey := "task-id", "person-id"
	if v.Camel {
		taskKey, personKey = "taskId", "userId"
	}
	if f.taskID > 0 {
		te[taskKey] = f.taskID
	}
	if f.personID > 0 {
		te[personKey] = f.personID
	}
	return stripEmpty(te)
}

func stripEmpty(m map[string]any) map[string]any {
	for k, v := range m {
		if v == nil {
			delete(m, k)
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(m, k)
		}
	}
	return m
}

type endpoint struct {
	scope string
	url   string
}

func (c *Client) endpoints(taskID int64, projectID string) []endpoint {
	var out []endpoint
	if taskID > 0 {
		out = append(out, endpoint{"task", fmt.Sprintf("%s/tasks/%d/time_entries.json", c.base, taskID)})
	}
	if projectID != "" {
		out = append(out, endpoint{"project", fmt.Sprintf("%s/projects/%s/time_entries.json", c.base, projectID)})
	}
	return append(out, endpoint{"global", c.base + "/time_entries.json"})
}

func numericID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func (c *Client) fields(e Entry) (entryFields, error) {
	d, err := time.Parse("02/01/2006", strings.TrimSpace(e.Date))
	if err != nil {
		if d, err = time.Parse("2006-01-02", strings.TrimSpace(e.Date)); err != nil {
			return entryFields{}, fmt.Errorf("%w: date %q", ErrInvalidEntry, e.Date)
		}
	}
	timeHM := strings.TrimSpace(e.Start)
	if timeHM == "" {
		timeHM = "00:00"
	}
	if len(timeHM) > 5 {
		timeHM = timeHM[:5]
	}
	h, m := SplitDuration(e.Total)
	return entryFields{
		dateNum:     d.Format("20060102"),
		dateISO:     d.Format("2006-01-02"),
		timeHM:      timeHM,
		hours:       h,
		minutes:     m,
		decimal:     DecimalHours(e.Total),
		billable:    e.Billable,
		description: TruncateDescription(e.Description, c.opts.DescriptionMax),
		taskID:      numericID(e.TaskID),
		personID:    numericID(e.PersonID),
	}, nil
}

// PostTimeEntry tries each endpoint with each payload variant and returns
// on the first response below 400. When all are refused the error is a
// *PostError carrying the last attempts.
func (c *Client) PostTimeEntry(ctx context.Context, e Entry) (PostResult, error) {
	if !c.Configured() {
		return PostResult{}, ErrNotConfigured
	}
	f, err := c.fields(e)
	if err != nil {
		return PostResult{}, err
	}
	projectID := strings.TrimSpace(e.ProjectID)
	if f.taskID == 0 && projectID == "" {
		return PostResult{}, ErrMissingTarget
	}

	started := time.Now()
	defer func() { observability.ObservePost(time.Since(started).Seconds()) }()

	var attempts []Attempt
	for _, ep := range c.endpoints(f.taskID, projectID) {
		for _, v := range PayloadVariants {
			if err := ctx.Err(); err != nil {
				return PostResult{}, fmt.Errorf("posting time entry: %w", err)
			}
			te := v.build(f)
			body, err := json.Marshal(map[string]any{"time-entry": te})
			if err != nil {
				return PostResult{}, fmt.Errorf("encoding payload: %w", err)
			}

			status, data, err := c.send(ctx, http.MethodPost, ep.url, body, c.opts.PostTimeout)
			if err != nil {
				observability.RecordPostAttempt(ep.scope, false)
				attempts = append(attempts, Attempt{Endpoint: ep.url, Variant: v.Name, Payload: te, Response: snippet(err.Error())})
				continue
			}
			if status < 400 {
				observability.RecordPostAttempt(ep.scope, true)
				res := PostResult{Endpoint: ep.url, Variant: v.Name, Status: status, Tried: len(attempts) + 1}
				if obj, err := decodeObject(data); err == nil {
					res.Response = obj
					res.EntryID = stringOf(obj, "timeLogId", "id")
				}
				c.logger.Debug("time entry accepted", "endpoint", ep.url, "variant", v.Name, "status", status)
				return res, nil
			}
			observability.RecordPostAttempt(ep.scope, false)
			attempts = append(attempts, Attempt{Endpoint: ep.url, Variant: v.Name, Status: status, Payload: te, Response: snippet(string(data))})
		}
	}

	return PostResult{}, &PostError{Tried: len(attempts), Attempts: lastAttempts(attempts, maxReportedAttempts)}
}

// lastAttempts returns up to n attempts, most recent first.
func lastAttempts(all []Attempt, n int) []Attempt {
	if len(all) < n {
		n = len(all)
	}
	out := make([]Attempt, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out
}
