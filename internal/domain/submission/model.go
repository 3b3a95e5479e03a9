package submission

import (
	"time"

	"github.com/rpggio/apontador/internal/teamwork"
)

// Outcome is what happened to one record in a batch.
type Outcome string

const (
	OutcomePosted  Outcome = "posted"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeDryRun  Outcome = "dry_run"
)

// PostedEntry remembers an accepted time entry by fingerprint.
type PostedEntry struct {
	Fingerprint string    `json:"fingerprint"`
	SheetID     string    `json:"sheet_id"`
	RecordID    string    `json:"record_id"`
	TaskID      string    `json:"task_id,omitempty"`
	RemoteID    string    `json:"remote_id,omitempty"`
	Endpoint    string    `json:"endpoint"`
	Variant     string    `json:"variant"`
	PostedAt    time.Time `json:"posted_at"`
}

// RecordResult is the per-record report of a batch.
type RecordResult struct {
	RecordID    string               `json:"record_id"`
	Position    int                  `json:"position"`
	Date        string               `json:"date"`
	Executor    string               `json:"executor"`
	TaskID      string               `json:"task_id,omitempty"`
	TaskName    string               `json:"task_name,omitempty"`
	Suggested   bool                 `json:"suggested,omitempty"`
	Fingerprint string               `json:"fingerprint"`
	Outcome     Outcome              `json:"outcome"`
	Post        *teamwork.PostResult `json:"post,omitempty"`
	Error       string               `json:"error,omitempty"`
	Attempts    []teamwork.Attempt   `json:"attempts,omitempty"`
}

// Result is the outcome of a whole batch.
type Result struct {
	SheetID    string         `json:"sheet_id"`
	DryRun     bool           `json:"dry_run,omitempty"`
	Successes  int            `json:"successes"`
	Failures   int            `json:"failures"`
	Skipped    int            `json:"skipped"`
	Records    []RecordResult `json:"records"`
	Errors     []string       `json:"errors,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	Report     string         `json:"report"`
	ReportPath string         `json:"report_path,omitempty"`
	Completed  bool           `json:"completed"`
	Cancelled  bool           `json:"cancelled,omitempty"`
}
