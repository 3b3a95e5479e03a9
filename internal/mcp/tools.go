package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/people"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/extract"
)

type tools struct {
	svc         Services
	defaultTag  string
	inheritTags bool
	phases      []string
	localFiles  bool // path input allowed; stdio only
	logger      *slog.Logger
}

func registerTools(server *sdkmcp.Server, t *tools) {
	// Sheets
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "extract_sheet",
		Description: "Extract activity records from a ficha (PDF or text) and store them as a new sheet",
	}, t.extractSheet)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_sheet",
		Description: "Get a sheet with its records, billing totals and the entries already posted",
	}, t.getSheet)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_sheets",
		Description: "List stored sheets, newest first",
	}, t.listSheets)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "assign_task",
		Description: "Attribute an activity record to a Teamwork task",
	}, t.assignTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_record",
		Description: "Change the description or the Teamwork person id of an activity record",
	}, t.updateRecord)

	// Teamwork
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "test_connection",
		Description: "Check the Teamwork credentials",
	}, t.testConnection)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List Teamwork projects sorted by name",
	}, t.listProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tasks",
		Description: "List the tasks of a project eligible for time entries (tag filtered, deduplicated, sorted)",
	}, t.listTasks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "suggest_task",
		Description: "Suggest the eligible task that best matches an activity description",
	}, t.suggestTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_phases",
		Description: "List the project phases, in order, that suggest_task accepts",
	}, t.listPhases)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_people",
		Description: "List the people of a project",
	}, t.listPeople)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_time_entries",
		Description: "List time entries already logged on a task for one day",
	}, t.listTimeEntries)

	// Posting and history
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_sheet",
		Description: "Post the records of a sheet as time entries, in order, and record the batch in history",
	}, t.submitSheet)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_history",
		Description: "Query past submission batches with totals; optionally export as json or csv",
	}, t.getHistory)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "clear_history",
		Description: "Delete the whole submission history",
	}, t.clearHistory)
}

func (t *tools) extractSheet(ctx context.Context, _ *sdkmcp.CallToolRequest, in ExtractSheetParams) (*sdkmcp.CallToolResult, ExtractSheetResult, error) {
	req := sheet.IngestRequest{
		SourceName:  in.SourceName,
		Text:        in.Text,
		Client:      in.Client,
		ProjectID:   in.ProjectID,
		ServiceType: in.ServiceType,
		Vertical:    in.Vertical,
		HourlyRate:  in.HourlyRate,
	}
	switch {
	case in.Path != "":
		if !t.localFiles {
			return nil, ExtractSheetResult{}, &APIError{
				Code:         "INVALID_INPUT",
				Message:      "path is only accepted over stdio",
				RecoveryHint: "Send the document as content_base64 or text",
			}
		}
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, ExtractSheetResult{}, fmt.Errorf("read document: %w", err)
		}
		req.Data = data
		if req.SourceName == "" {
			req.SourceName = filepath.Base(in.Path)
		}
	case in.ContentBase64 != "":
		data, err := base64.StdEncoding.DecodeString(in.ContentBase64)
		if err != nil {
			return nil, ExtractSheetResult{}, &APIError{Code: "INVALID_INPUT", Message: "content_base64 is not valid base64"}
		}
		req.Data = data
	}

	res, err := t.svc.Sheets.Ingest(ctx, req)
	if err != nil {
		return nil, ExtractSheetResult{}, mapError(err)
	}
	out := ExtractSheetResult{Sheet: res.Sheet, Strategy: res.Strategy, Lines: res.Lines, Warnings: res.Warnings}
	if in.MatchExecutors && res.Sheet != nil && res.Sheet.ProjectID != "" {
		out.Warnings = append(out.Warnings, t.matchExecutors(ctx, res.Sheet)...)
	}
	return nil, out, nil
}

// matchExecutors fetches the project roster once and stores the matched
// person id on each record.
func (t *tools) matchExecutors(ctx context.Context, sh *sheet.ServiceSheet) []string {
	var warnings []string
	roster := t.svc.People.List(ctx, sh.ProjectID)
	if roster.Warning != "" {
		warnings = append(warnings, roster.Warning)
	}
	resolved := map[string]string{}
	for i := range sh.Records {
		rec := &sh.Records[i]
		id, seen := resolved[rec.ExecutorName]
		if !seen {
			if m, ok := people.MatchName(rec.ExecutorName, roster.People); ok {
				id = m.Person.ID
			} else if roster.Warning == "" {
				warnings = append(warnings, fmt.Sprintf("executor %q not found in project people", rec.ExecutorName))
			}
			resolved[rec.ExecutorName] = id
		}
		if id == "" {
			continue
		}
		if _, err := t.svc.Sheets.AssignExecutor(ctx, sh.ID, rec.ID, id); err != nil {
			t.logger.Warn("storing executor failed", "record_id", rec.ID, "error", err)
			continue
		}
		rec.ExecutorID = id
	}
	return warnings
}

func (t *tools) getSheet(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetSheetParams) (*sdkmcp.CallToolResult, GetSheetResult, error) {
	sh, err := t.svc.Sheets.Get(ctx, in.ID)
	if err != nil {
		return nil, GetSheetResult{}, mapError(err)
	}
	posted, err := t.svc.Submission.PostedEntries(ctx, sh.ID)
	if err != nil {
		return nil, GetSheetResult{}, mapError(err)
	}
	return nil, GetSheetResult{Sheet: sh, Posted: posted, Billing: submission.SumHours(sh.Records)}, nil
}

func (t *tools) listSheets(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListSheetsParams) (*sdkmcp.CallToolResult, ListSheetsResult, error) {
	list, err := t.svc.Sheets.List(ctx, sheet.ListOptions{
		ProjectID: in.ProjectID,
		Status:    in.Status,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, ListSheetsResult{}, mapError(err)
	}
	return nil, ListSheetsResult{Sheets: list}, nil
}

func (t *tools) assignTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in AssignTaskParams) (*sdkmcp.CallToolResult, RecordResult, error) {
	rec, err := t.svc.Sheets.AssignTask(ctx, in.SheetID, in.RecordID, sheet.TaskRef{ID: in.TaskID, Name: in.TaskName})
	if err != nil {
		return nil, RecordResult{}, mapError(err)
	}
	return nil, RecordResult{Record: rec}, nil
}

func (t *tools) updateRecord(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateRecordParams) (*sdkmcp.CallToolResult, RecordResult, error) {
	if in.Description == nil && in.ExecutorID == nil {
		return nil, RecordResult{}, &APIError{Code: "INVALID_INPUT", Message: "nothing to update", RecoveryHint: "Pass description or executor_id"}
	}
	var rec *sheet.ActivityRecord
	var err error
	if in.Description != nil {
		if rec, err = t.svc.Sheets.UpdateDescription(ctx, in.SheetID, in.RecordID, *in.Description); err != nil {
			return nil, RecordResult{}, mapError(err)
		}
	}
	if in.ExecutorID != nil {
		if rec, err = t.svc.Sheets.AssignExecutor(ctx, in.SheetID, in.RecordID, *in.ExecutorID); err != nil {
			return nil, RecordResult{}, mapError(err)
		}
	}
	return nil, RecordResult{Record: rec}, nil
}

func (t *tools) testConnection(ctx context.Context, _ *sdkmcp.CallToolRequest, _ TestConnectionParams) (*sdkmcp.CallToolResult, TestConnectionResult, error) {
	acct, err := t.svc.Remote.TestConnection(ctx)
	if err != nil {
		if apiErr := MapError(err); apiErr != nil {
			return nil, TestConnectionResult{Error: apiErr.Error()}, nil
		}
		return nil, TestConnectionResult{Error: err.Error()}, nil
	}
	return nil, TestConnectionResult{OK: true, Account: &acct}, nil
}

func (t *tools) listProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListProjectsParams) (*sdkmcp.CallToolResult, ListProjectsResult, error) {
	projects, err := t.svc.Remote.Projects(ctx)
	if err != nil {
		return nil, ListProjectsResult{}, mapError(err)
	}
	return nil, ListProjectsResult{Projects: projects}, nil
}

func (t *tools) tag(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return t.defaultTag
}

func (t *tools) inherit(override *bool) bool {
	if override != nil {
		return *override
	}
	return t.inheritTags
}

func (t *tools) listTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListTasksParams) (*sdkmcp.CallToolResult, task.Listing, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, task.Listing{}, &APIError{Code: "PROJECT_REQUIRED", Message: "project id required", RecoveryHint: "Call list_projects"}
	}
	listing := t.svc.Tasks.Eligible(ctx, task.Query{
		ProjectID:        in.ProjectID,
		Tag:              t.tag(in.Tag),
		InheritTags:      t.inherit(in.InheritTags),
		IncludeCompleted: in.IncludeCompleted,
		Refresh:          in.Refresh,
	})
	return nil, listing, nil
}

func (t *tools) suggestTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in SuggestTaskParams) (*sdkmcp.CallToolResult, task.SuggestResult, error) {
	req := task.SuggestRequest{
		Query:    task.Query{ProjectID: in.ProjectID, Tag: t.tag(in.Tag), InheritTags: t.inherit(in.InheritTags)},
		Activity: in.Activity,
		Phase:    in.Phase,
	}
	if in.SheetID != "" {
		sh, err := t.svc.Sheets.Get(ctx, in.SheetID)
		if err != nil {
			return nil, task.SuggestResult{}, mapError(err)
		}
		req.Meta = task.Meta{Client: sh.Client, Ticket: sh.Ticket, Ficha: sh.FichaNumber}
		if req.Query.ProjectID == "" {
			req.Query.ProjectID = sh.ProjectID
		}
	}
	if strings.TrimSpace(req.Query.ProjectID) == "" {
		return nil, task.SuggestResult{}, &APIError{Code: "PROJECT_REQUIRED", Message: "project id required"}
	}
	return nil, t.svc.Tasks.Suggest(ctx, req), nil
}

func (t *tools) listPhases(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListPhasesParams) (*sdkmcp.CallToolResult, ListPhasesResult, error) {
	return nil, ListPhasesResult{Phases: append([]string{}, t.phases...)}, nil
}

func (t *tools) listPeople(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListPeopleParams) (*sdkmcp.CallToolResult, people.Roster, error) {
	return nil, t.svc.People.List(ctx, in.ProjectID), nil
}

func (t *tools) listTimeEntries(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListTimeEntriesParams) (*sdkmcp.CallToolResult, ListTimeEntriesResult, error) {
	day, ok := parseDay(in.Date)
	if !ok || strings.TrimSpace(in.TaskID) == "" {
		return nil, ListTimeEntriesResult{}, &APIError{Code: "INVALID_INPUT", Message: "task_id and a valid date are required"}
	}
	entries, err := t.svc.Remote.TimeEntries(ctx, in.TaskID, day.Format("20060102"))
	if err != nil {
		return nil, ListTimeEntriesResult{}, mapError(err)
	}
	return nil, ListTimeEntriesResult{Entries: entries}, nil
}

func (t *tools) submitSheet(ctx context.Context, _ *sdkmcp.CallToolRequest, in SubmitSheetParams) (*sdkmcp.CallToolResult, submission.Result, error) {
	consultant := strings.TrimSpace(in.ConsultantName)
	if consultant == "" {
		consultant = getOperator(ctx)
	}
	res, err := t.svc.Submission.Submit(ctx, submission.Request{
		SheetID:        in.SheetID,
		RecordIDs:      in.RecordIDs,
		ProjectID:      in.ProjectID,
		ProjectName:    in.ProjectName,
		ConsultantName: consultant,
		ConsultantID:   in.ConsultantID,
		DryRun:         in.DryRun,
		SkipDuplicates: in.SkipDuplicates,
		SuggestTasks:   in.SuggestTasks,
		Extras:         in.Extras,
	})
	if err != nil {
		return nil, submission.Result{}, mapError(err)
	}
	return nil, *res, nil
}

func (t *tools) getHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetHistoryParams) (*sdkmcp.CallToolResult, GetHistoryResult, error) {
	f := history.Filter{Term: in.Term, Consultants: in.Consultants}
	if in.From != "" {
		d, ok := parseDay(in.From)
		if !ok {
			return nil, GetHistoryResult{}, &APIError{Code: "INVALID_INPUT", Message: "invalid from date"}
		}
		f.From = d
	}
	if in.To != "" {
		d, ok := parseDay(in.To)
		if !ok {
			return nil, GetHistoryResult{}, &APIError{Code: "INVALID_INPUT", Message: "invalid to date"}
		}
		f.To = d
	}

	report, err := t.svc.History.Query(ctx, f)
	if err != nil {
		return nil, GetHistoryResult{}, mapError(err)
	}
	out := GetHistoryResult{Entries: report.Entries, Totals: report.Totals}

	var data []byte
	switch strings.ToLower(in.Format) {
	case "":
	case "json":
		data, err = history.ExportJSON(report.Entries)
	case "csv":
		data, err = history.ExportCSV(report.Entries)
	default:
		return nil, GetHistoryResult{}, &APIError{Code: "INVALID_INPUT", Message: "format must be json or csv"}
	}
	if err != nil {
		return nil, GetHistoryResult{}, err
	}
	out.Export = string(data)
	return nil, out, nil
}

func (t *tools) clearHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, in ClearHistoryParams) (*sdkmcp.CallToolResult, OKResult, error) {
	if !in.Confirm {
		return nil, OKResult{}, &APIError{Code: "INVALID_INPUT", Message: "confirm must be true"}
	}
	if err := t.svc.History.Clear(ctx); err != nil {
		return nil, OKResult{}, mapError(err)
	}
	t.logger.Info("history cleared", "operator", getOperator(ctx))
	return nil, OKResult{OK: true}, nil
}

// parseDay accepts YYYY-MM-DD or the day-first forms found in fichas.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, true
	}
	return extract.ParseDate(s)
}
