package submission

import (
	"context"

	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/teamwork"
)

// SheetService reads and updates sheets.
type SheetService interface {
	Get(ctx context.Context, id string) (*sheet.ServiceSheet, error)
	AssignTask(ctx context.Context, sheetID, recordID string, t sheet.TaskRef) (*sheet.ActivityRecord, error)
	Complete(ctx context.Context, id string) (*sheet.ServiceSheet, error)
}

// Poster sends one time entry.
type Poster interface {
	PostTimeEntry(ctx context.Context, e teamwork.Entry) (teamwork.PostResult, error)
}

// TaskSuggester proposes a task for records that have none.
type TaskSuggester interface {
	Suggest(ctx context.Context, req task.SuggestRequest) task.SuggestResult
}

// EntryRepository stores fingerprints of accepted entries.
type EntryRepository interface {
	Exists(ctx context.Context, fingerprint string) (bool, error)
	Save(ctx context.Context, e *PostedEntry) error
	ListBySheet(ctx context.Context, sheetID string) ([]PostedEntry, error)
}

// HistoryRecorder appends batch summaries.
type HistoryRecorder interface {
	Record(ctx context.Context, entry history.BatchSummary) error
}
