// Package sheet manages service sheets extracted from fichas.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/apontador/internal/document"
	"github.com/rpggio/apontador/internal/extract"
	"github.com/rpggio/apontador/internal/observability"
	"github.com/rpggio/apontador/internal/repository"
)

// Service handles sheet business logic.
type Service struct {
	repo      Repository
	extractor *extract.Extractor
	defaults  Defaults
	logger    *slog.Logger
}

// NewService creates a new sheet service. A nil extractor uses the default
// strategies.
func NewService(repo Repository, extractor *extract.Extractor, defaults Defaults, logger *slog.Logger) *Service {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, extractor: extractor, defaults: defaults, logger: logger}
}

// IngestRequest describes an uploaded document. Either Data (raw file
// bytes) or Text is required. Non-empty overrides replace header values.
type IngestRequest struct {
	SourceName  string
	Data        []byte
	Text        string
	Client      string
	ProjectID   string
	ServiceType string
	Vertical    string
	HourlyRate  float64
}

// IngestResult reports the extraction. Sheet is nil when no record was
// found; that is a valid outcome, described by Warnings.
type IngestResult struct {
	Sheet    *ServiceSheet `json:"sheet,omitempty"`
	Strategy string        `json:"strategy,omitempty"`
	Lines    int           `json:"lines"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Ingest extracts a document and stores it as a new in-progress sheet.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if err := ValidateIngestInput(req); err != nil {
		return nil, err
	}

	text := req.Text
	if len(req.Data) > 0 {
		var err error
		text, err = document.ExtractText(req.SourceName, req.Data)
		if err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
	}

	res := s.extractor.Extract(text)
	observability.RecordExtraction(res.Strategy, len(res.Records))
	out := &IngestResult{Strategy: res.Strategy, Lines: res.Lines}

	if len(res.Records) == 0 {
		s.logger.Warn("no activity records found", "source", req.SourceName, "lines", res.Lines)
		out.Warnings = append(out.Warnings, fmt.Sprintf("no activity records found in %d lines", res.Lines))
		return out, nil
	}

	sh := s.newSheet(req, res)
	missing := 0
	for _, r := range sh.Records {
		if !r.DescriptionFound {
			missing++
		}
	}
	if missing > 0 {
		s.logger.Warn("service description not found", "sheet_id", sh.ID, "records", missing)
		out.Warnings = append(out.Warnings, fmt.Sprintf("%d record(s) without a service description; placeholder used", missing))
	}

	if err := s.repo.Create(ctx, sh); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	s.logger.Info("sheet ingested", "sheet_id", sh.ID, "strategy", res.Strategy, "records", len(sh.Records))

	out.Sheet = sh
	return out, nil
}

func (s *Service) newSheet(req IngestRequest, res extract.Result) *ServiceSheet {
	h := res.Header
	sh := &ServiceSheet{
		ID:          uuid.NewString(),
		Client:      firstNonEmpty(req.Client, h.Client),
		ProjectID:   firstNonEmpty(req.ProjectID, h.ProjectID),
		Vertical:    firstNonEmpty(req.Vertical, s.defaults.Vertical),
		ServiceType: firstNonEmpty(req.ServiceType, h.ServiceType, s.defaults.ServiceType),
		HourlyRate:  h.HourlyRate,
		FichaNumber: h.FichaNumber,
		Ticket:      h.Ticket,
		SourceName:  req.SourceName,
		Strategy:    res.Strategy,
		Status:      StatusInProgress,
		CreatedAt:   time.Now(),
	}
	if req.HourlyRate > 0 {
		sh.HourlyRate = req.HourlyRate
	}
	if sh.HourlyRate <= 0 {
		sh.HourlyRate = s.defaults.HourlyRate
	}

	sh.Records = make([]ActivityRecord, 0, len(res.Records))
	for i, r := range res.Records {
		sh.Records = append(sh.Records, ActivityRecord{
			ID:               uuid.NewString(),
			SheetID:          sh.ID,
			Position:         i,
			SourceLine:       r.Line,
			Date:             r.Date,
			ExecutorName:     r.Executor,
			StartTime:        r.Start,
			EndTime:          r.End,
			TotalDuration:    r.Total,
			Billable:         r.Billable,
			Description:      r.Description,
			DescriptionFound: r.DescriptionFound,
		})
	}
	return sh
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Get fetches a sheet by ID.
func (s *Service) Get(ctx context.Context, id string) (*ServiceSheet, error) {
	sh, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSheetNotFound
		}
		return nil, fmt.Errorf("getting sheet: %w", err)
	}
	return sh, nil
}

// List returns sheet summaries, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]SheetSummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	list, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing sheets: %w", err)
	}
	return list, nil
}

// TaskRef identifies the task a record is attributed to.
type TaskRef struct {
	ID   string
	Name string
}

// AssignTask attributes a record to a task. An empty ID clears it.
func (s *Service) AssignTask(ctx context.Context, sheetID, recordID string, t TaskRef) (*ActivityRecord, error) {
	return s.updateRecord(ctx, sheetID, recordID, func(rec *ActivityRecord) {
		rec.TaskID = strings.TrimSpace(t.ID)
		rec.TaskName = strings.TrimSpace(t.Name)
		if rec.TaskID == "" {
			rec.TaskName = ""
		}
	})
}

// AssignExecutor sets the remote person id of a record. An empty id means
// the executor was not matched.
func (s *Service) AssignExecutor(ctx context.Context, sheetID, recordID, executorID string) (*ActivityRecord, error) {
	return s.updateRecord(ctx, sheetID, recordID, func(rec *ActivityRecord) {
		rec.ExecutorID = strings.TrimSpace(executorID)
	})
}

// UpdateDescription replaces the narrative sent with the time entry.
func (s *Service) UpdateDescription(ctx context.Context, sheetID, recordID, description string) (*ActivityRecord, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrInvalidInput
	}
	return s.updateRecord(ctx, sheetID, recordID, func(rec *ActivityRecord) {
		rec.Description = strings.TrimSpace(description)
	})
}

func (s *Service) updateRecord(ctx context.Context, sheetID, recordID string, apply func(*ActivityRecord)) (*ActivityRecord, error) {
	if strings.TrimSpace(sheetID) == "" || strings.TrimSpace(recordID) == "" {
		return nil, ErrInvalidInput
	}
	sh, err := s.Get(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sh.Status == StatusCompleted {
		return nil, ErrSheetCompleted
	}
	rec, ok := sh.Record(recordID)
	if !ok {
		return nil, ErrRecordNotFound
	}
	apply(rec)
	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("updating record: %w", err)
	}
	return rec, nil
}

// Complete marks a sheet as completed.
func (s *Service) Complete(ctx context.Context, id string) (*ServiceSheet, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(sh.Status, StatusCompleted); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, id, StatusCompleted, &now); err != nil {
		return nil, fmt.Errorf("completing sheet: %w", err)
	}
	sh.Status = StatusCompleted
	sh.CompletedAt = &now
	s.logger.Info("sheet completed", "sheet_id", id)
	return sh, nil
}
