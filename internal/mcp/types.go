package mcp

import (
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/teamwork"
)

type ExtractSheetParams struct {
	Path           string  `json:"path,omitempty" jsonschema:"Local file path; stdio transport only"`
	ContentBase64  string  `json:"content_base64,omitempty" jsonschema:"File content, base64 encoded"`
	Text           string  `json:"text,omitempty" jsonschema:"Plain text of the document"`
	SourceName     string  `json:"source_name,omitempty" jsonschema:"File name, used to detect PDFs and in reports"`
	Client         string  `json:"client,omitempty" jsonschema:"Override the client read from the document"`
	ProjectID      string  `json:"project_id,omitempty" jsonschema:"Override the project id read from the document"`
	ServiceType    string  `json:"service_type,omitempty"`
	Vertical       string  `json:"vertical,omitempty"`
	HourlyRate     float64 `json:"hourly_rate,omitempty"`
	MatchExecutors bool    `json:"match_executors,omitempty" jsonschema:"Resolve executor names against project people"`
}

type ExtractSheetResult struct {
	Sheet    *sheet.ServiceSheet `json:"sheet,omitempty"`
	Strategy string              `json:"strategy,omitempty"`
	Lines    int                 `json:"lines"`
	Warnings []string            `json:"warnings,omitempty"`
}

type GetSheetParams struct {
	ID string `json:"id" jsonschema:"Sheet id"`
}

type GetSheetResult struct {
	Sheet   *sheet.ServiceSheet      `json:"sheet"`
	Posted  []submission.PostedEntry `json:"posted"`
	Billing submission.Hours         `json:"billing"`
}

type ListSheetsParams struct {
	ProjectID string       `json:"project_id,omitempty"`
	Status    sheet.Status `json:"status,omitempty" jsonschema:"IN_PROGRESS or COMPLETED"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}

type ListSheetsResult struct {
	Sheets []sheet.SheetSummary `json:"sheets"`
}

type ListProjectsParams struct{}

type ListProjectsResult struct {
	Projects []teamwork.Project `json:"projects"`
}

type ListTasksParams struct {
	ProjectID        string `json:"project_id" jsonschema:"Teamwork project id"`
	Tag              string `json:"tag,omitempty" jsonschema:"Eligibility tag; defaults to the configured tag"`
	IncludeCompleted bool   `json:"include_completed,omitempty"`
	Refresh          bool   `json:"refresh,omitempty" jsonschema:"Ignore the cached task list"`
	InheritTags      *bool  `json:"inherit_tags,omitempty" jsonschema:"Subtasks inherit parent tags; defaults to the configured value"`
}

type SuggestTaskParams struct {
	ProjectID   string `json:"project_id"`
	Activity    string `json:"activity" jsonschema:"Activity description"`
	Phase       string `json:"phase,omitempty" jsonschema:"Project phase; proposed from the activity when empty"`
	SheetID     string `json:"sheet_id,omitempty" jsonschema:"Sheet whose ficha and ticket numbers boost matches"`
	Tag         string `json:"tag,omitempty"`
	InheritTags *bool  `json:"inherit_tags,omitempty" jsonschema:"Subtasks inherit parent tags; defaults to the configured value"`
}

type ListPeopleParams struct {
	ProjectID string `json:"project_id"`
}

type AssignTaskParams struct {
	SheetID  string `json:"sheet_id"`
	RecordID string `json:"record_id"`
	TaskID   string `json:"task_id" jsonschema:"Task id; empty clears the assignment"`
	TaskName string `json:"task_name,omitempty"`
}

type UpdateRecordParams struct {
	SheetID     string  `json:"sheet_id"`
	RecordID    string  `json:"record_id"`
	Description *string `json:"description,omitempty"`
	ExecutorID  *string `json:"executor_id,omitempty"`
}

type RecordResult struct {
	Record *sheet.ActivityRecord `json:"record"`
}

type SubmitSheetParams struct {
	SheetID        string         `json:"sheet_id"`
	RecordIDs      []string       `json:"record_ids,omitempty" jsonschema:"Records to post in this order; all when empty"`
	ProjectID      string         `json:"project_id,omitempty"`
	ProjectName    string         `json:"project_name,omitempty"`
	ConsultantName string         `json:"consultant_name,omitempty" jsonschema:"Defaults to the authenticated operator"`
	ConsultantID   string         `json:"consultant_id,omitempty" jsonschema:"Teamwork person id used for every entry"`
	DryRun         bool           `json:"dry_run,omitempty"`
	SkipDuplicates bool           `json:"skip_duplicates,omitempty"`
	SuggestTasks   bool           `json:"suggest_tasks,omitempty" jsonschema:"Pick a task for records without one"`
	Extras         map[string]any `json:"extras,omitempty" jsonschema:"Extra fields stored with the history entry"`
}

type GetHistoryParams struct {
	Term        string   `json:"term,omitempty" jsonschema:"Matches client, project or file name"`
	Consultants []string `json:"consultants,omitempty"`
	From        string   `json:"from,omitempty" jsonschema:"Start date, YYYY-MM-DD or DD/MM/YYYY"`
	To          string   `json:"to,omitempty" jsonschema:"End date, YYYY-MM-DD or DD/MM/YYYY"`
	Format      string   `json:"format,omitempty" jsonschema:"json or csv to also return an export"`
}

type GetHistoryResult struct {
	Entries []history.BatchSummary `json:"entries"`
	Totals  history.Totals         `json:"totals"`
	Export  string                 `json:"export,omitempty"`
}

type ClearHistoryParams struct {
	Confirm bool `json:"confirm" jsonschema:"Must be true"`
}

type ListTimeEntriesParams struct {
	TaskID string `json:"task_id"`
	Date   string `json:"date" jsonschema:"DD/MM/YYYY"`
}

type ListTimeEntriesResult struct {
	Entries []teamwork.TimeEntry `json:"entries"`
}

type ListPhasesParams struct{}

type ListPhasesResult struct {
	Phases []string `json:"phases"`
}

type TestConnectionParams struct{}

type TestConnectionResult struct {
	OK      bool              `json:"ok"`
	Account *teamwork.Account `json:"account,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type OKResult struct {
	OK bool `json:"ok"`
}
