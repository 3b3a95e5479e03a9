// Package submission posts the records of a sheet as time entries, one at
// a time, and records the batch outcome.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/fingerprint"
	"github.com/rpggio/apontador/internal/observability"
	"github.com/rpggio/apontador/internal/teamwork"
)

// Service runs submission batches.
type Service struct {
	sheets  SheetService
	poster  Poster
	tasks   TaskSuggester
	entries EntryRepository
	history HistoryRecorder
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a submission service. tasks may be nil, which
// disables suggestions.
func NewService(sheets SheetService, poster Poster, tasks TaskSuggester, entries EntryRepository, hist HistoryRecorder, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		sheets:  sheets,
		poster:  poster,
		tasks:   tasks,
		entries: entries,
		history: hist,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// KeyFor builds the duplicate-detection key of a record. The ficha number
// identifies the sheet when present so re-uploads of one document collide.
func KeyFor(sh *sheet.ServiceSheet, rec *sheet.ActivityRecord, taskID string) fingerprint.Key {
	id := sh.FichaNumber
	if id == "" {
		id = sh.ID
	}
	return fingerprint.Key{
		SheetID:  id,
		TicketID: sh.Ticket,
		Date:     rec.Date,
		Start:    rec.StartTime,
		End:      rec.EndTime,
		TaskID:   taskID,
	}
}

// Submit posts the selected records strictly in order. A failed record
// never stops the batch. Cancelling ctx stops before the next record and
// leaves the sheet in progress.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.SheetID) == "" {
		return nil, ErrInvalidInput
	}
	if s.opts.RequireConsultant && !req.DryRun && strings.TrimSpace(req.ConsultantName) == "" {
		return nil, ErrMissingConsultant
	}

	sh, err := s.sheets.Get(ctx, req.SheetID)
	if err != nil {
		return nil, err
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		projectID = sh.ProjectID
	}
	if projectID == "" {
		return nil, ErrMissingProject
	}

	selected, err := selectRecords(sh, req.RecordIDs)
	if err != nil {
		return nil, err
	}

	res := &Result{SheetID: sh.ID, DryRun: req.DryRun, Records: make([]RecordResult, 0, len(selected))}
	for i, rec := range selected {
		if ctx.Err() != nil {
			res.Cancelled = true
			s.logger.Warn("submission cancelled", "sheet_id", sh.ID, "done", i, "selected", len(selected))
			break
		}
		rr := s.submitRecord(ctx, sh, rec, projectID, req, res)
		res.Records = append(res.Records, rr)
		observability.RecordBatchEntry(string(rr.Outcome))
	}

	res.Report = BuildReport(sh, res, projectID, req, s.now())
	if req.DryRun {
		return res, nil
	}

	s.recordHistory(ctx, sh, projectID, req, res)
	s.writeReport(sh, res)

	if !res.Cancelled {
		if sh.Status == sheet.StatusCompleted {
			res.Completed = true
		} else if _, err := s.sheets.Complete(context.WithoutCancel(ctx), sh.ID); err != nil {
			s.logger.Error("completing sheet failed", "sheet_id", sh.ID, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not complete sheet: %v", err))
		} else {
			res.Completed = true
		}
	}

	s.logger.Info("submission finished",
		"sheet_id", sh.ID,
		"successes", res.Successes,
		"failures", res.Failures,
		"skipped", res.Skipped,
	)
	return res, nil
}

func selectRecords(sh *sheet.ServiceSheet, ids []string) ([]*sheet.ActivityRecord, error) {
	if len(ids) == 0 {
		out := make([]*sheet.ActivityRecord, 0, len(sh.Records))
		for i := range sh.Records {
			out = append(out, &sh.Records[i])
		}
		if len(out) == 0 {
			return nil, ErrNoRecords
		}
		return out, nil
	}
	out := make([]*sheet.ActivityRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := sh.Record(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", sheet.ErrRecordNotFound, id)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Service) submitRecord(ctx context.Context, sh *sheet.ServiceSheet, rec *sheet.ActivityRecord, projectID string, req Request, res *Result) RecordResult {
	rr := RecordResult{
		RecordID: rec.ID,
		Position: rec.Position,
		Date:     rec.Date,
		Executor: rec.ExecutorName,
		TaskID:   rec.TaskID,
		TaskName: rec.TaskName,
	}

	if rr.TaskID == "" && req.SuggestTasks && s.tasks != nil {
		s.suggestTask(ctx, sh, rec, projectID, req.DryRun, &rr, res)
	}

	rr.Fingerprint = fingerprint.Compute(KeyFor(sh, rec, rr.TaskID))

	if req.SkipDuplicates && s.entries != nil {
		dup, err := s.entries.Exists(ctx, rr.Fingerprint)
		if err != nil {
			s.logger.Warn("duplicate check failed", "record_id", rec.ID, "error", err)
		} else if dup {
			rr.Outcome = OutcomeSkipped
			res.Skipped++
			return rr
		}
	}

	if req.DryRun {
		rr.Outcome = OutcomeDryRun
		return rr
	}

	// A consultant name without an id keeps the person matched on the record.
	executor, personID := rec.ExecutorName, rec.ExecutorID
	if req.ConsultantName != "" {
		executor = req.ConsultantName
	}
	if req.ConsultantID != "" {
		personID = req.ConsultantID
	}
	rr.Executor = executor

	post, err := s.poster.PostTimeEntry(ctx, teamwork.Entry{
		Date:        rec.Date,
		Start:       rec.StartTime,
		Total:       rec.TotalDuration,
		Billable:    rec.Billable,
		Description: rec.Description,
		TaskID:      rr.TaskID,
		PersonID:    personID,
		ProjectID:   projectID,
	})
	if err != nil {
		rr.Outcome = OutcomeFailed
		rr.Error = err.Error()
		var postErr *teamwork.PostError
		if errors.As(err, &postErr) {
			rr.Attempts = postErr.Attempts
		}
		res.Failures++
		target := rr.TaskID
		if target == "" {
			target = "-"
		}
		res.Errors = append(res.Errors, fmt.Sprintf("Registro %d (%s) → Tarefa #%s: %v", rec.Position+1, executor, target, err))
		s.logger.Warn("time entry failed", "sheet_id", sh.ID, "record_id", rec.ID, "error", err)
		return rr
	}

	rr.Outcome = OutcomePosted
	rr.Post = &post
	res.Successes++

	if s.entries != nil {
		saveErr := s.entries.Save(context.WithoutCancel(ctx), &PostedEntry{
			Fingerprint: rr.Fingerprint,
			SheetID:     sh.ID,
			RecordID:    rec.ID,
			TaskID:      rr.TaskID,
			RemoteID:    post.EntryID,
			Endpoint:    post.Endpoint,
			Variant:     post.Variant,
			PostedAt:    s.now(),
		})
		if saveErr != nil {
			s.logger.Warn("storing fingerprint failed", "record_id", rec.ID, "error", saveErr)
		}
	}
	return rr
}

func (s *Service) suggestTask(ctx context.Context, sh *sheet.ServiceSheet, rec *sheet.ActivityRecord, projectID string, dryRun bool, rr *RecordResult, res *Result) {
	sug := s.tasks.Suggest(ctx, task.SuggestRequest{
		Query: task.Query{
			ProjectID:   projectID,
			Tag:         s.opts.Tag,
			InheritTags: s.opts.InheritTags,
		},
		Activity: rec.Description,
		Meta:     task.Meta{Client: sh.Client, Ticket: sh.Ticket, Ficha: sh.FichaNumber},
	})
	if sug.Warning != "" && !containsString(res.Warnings, sug.Warning) {
		res.Warnings = append(res.Warnings, sug.Warning)
	}
	if sug.Suggestion == nil {
		return
	}
	rr.TaskID, rr.TaskName, rr.Suggested = sug.Suggestion.Task.ID, sug.Suggestion.Task.Name, true
	if dryRun {
		return
	}

	if _, err := s.sheets.AssignTask(ctx, sh.ID, rec.ID, sheet.TaskRef{ID: rr.TaskID, Name: rr.TaskName}); err != nil {
		s.logger.Warn("storing suggested task failed", "record_id", rec.ID, "error", err)
	}
	rec.TaskID, rec.TaskName = rr.TaskID, rr.TaskName
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Service) recordHistory(ctx context.Context, sh *sheet.ServiceSheet, projectID string, req Request, res *Result) {
	if s.history == nil {
		return
	}
	extras := map[string]any{}
	for k, v := range req.Extras {
		extras[k] = v
	}
	extras[history.ExtraSheetID] = sh.ID
	if req.ProjectName != "" {
		extras[history.ExtraProjectName] = req.ProjectName
	}
	if sh.SourceName != "" {
		extras[history.ExtraSourceFile] = sh.SourceName
	}

	entry := history.BatchSummary{
		Timestamp:      s.now(),
		Client:         sh.Client,
		ProjectID:      projectID,
		Successes:      res.Successes,
		Failures:       res.Failures,
		TotalRecords:   len(sh.Records),
		ConsultantName: req.ConsultantName,
		ConsultantID:   req.ConsultantID,
		Errors:         res.Errors,
		Extras:         extras,
	}
	if err := s.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("recording history failed", "sheet_id", sh.ID, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not record history: %v", err))
	}
}

func (s *Service) writeReport(sh *sheet.ServiceSheet, res *Result) {
	if s.opts.ReportDir == "" {
		return
	}
	name := sh.FichaNumber
	if name == "" {
		name = sh.ID
	}
	path := filepath.Join(s.opts.ReportDir, fmt.Sprintf("ficha-%s-%s.txt", name, s.now().Format("20060102-150405")))
	if err := os.MkdirAll(s.opts.ReportDir, 0o755); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not write report: %v", err))
		return
	}
	if err := os.WriteFile(path, []byte(res.Report), 0o644); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not write report: %v", err))
		return
	}
	res.ReportPath = path
}

// PostedEntries lists the entries accepted for a sheet.
func (s *Service) PostedEntries(ctx context.Context, sheetID string) ([]PostedEntry, error) {
	if s.entries == nil {
		return []PostedEntry{}, nil
	}
	list, err := s.entries.ListBySheet(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("listing posted entries: %w", err)
	}
	return list, nil
}
