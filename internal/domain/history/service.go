// Package history records and queries submission batches.
package history

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filter narrows a history query. Zero values match everything. Entries
// without a readable timestamp always pass the date bounds.
type Filter struct {
	Term        string
	Consultants []string
	From        time.Time
	To          time.Time
}

// Totals aggregates a filtered history.
type Totals struct {
	Sessions    int     `json:"sessions"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"` // percent
}

// Report is a query result, newest first.
type Report struct {
	Entries []BatchSummary `json:"entries"`
	Totals  Totals         `json:"totals"`
}

// Service handles history operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new history service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, logger: logger}
}

// Record appends a batch summary, stamping it with the current time if
// missing.
func (s *Service) Record(ctx context.Context, entry BatchSummary) error {
	if entry.TotalRecords < 0 || entry.Successes < 0 || entry.Failures < 0 {
		return ErrInvalidInput
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

// Query returns the entries matching f and their totals.
func (s *Service) Query(ctx context.Context, f Filter) (Report, error) {
	all, err := s.store.Read(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading history: %w", err)
	}

	matched := make([]BatchSummary, 0, len(all))
	for _, e := range all {
		if f.matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return Report{Entries: matched, Totals: Summarize(matched)}, nil
}

// Clear drops the whole history.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	s.logger.Info("history cleared")
	return nil
}

func (f Filter) matches(e BatchSummary) bool {
	if !e.Timestamp.IsZero() {
		day := dateOnly(e.Timestamp)
		if !f.From.IsZero() && day.Before(dateOnly(f.From)) {
			return false
		}
		if !f.To.IsZero() && day.After(dateOnly(f.To)) {
			return false
		}
	}
	if term := strings.ToLower(strings.TrimSpace(f.Term)); term != "" {
		hay := strings.ToLower(strings.Join([]string{
			e.Client, e.ProjectID, e.Extra(ExtraProjectName), e.ConsultantName, e.Extra(ExtraSourceFile),
		}, " "))
		if !strings.Contains(hay, term) {
			return false
		}
	}
	if len(f.Consultants) > 0 {
		name := strings.TrimSpace(e.ConsultantName)
		found := false
		for _, c := range f.Consultants {
			if strings.TrimSpace(c) == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summarize totals a list of entries.
func Summarize(entries []BatchSummary) Totals {
	t := Totals{Sessions: len(entries)}
	for _, e := range entries {
		t.Successes += e.Successes
		t.Failures += e.Failures
	}
	if n := t.Successes + t.Failures; n > 0 {
		t.SuccessRate = float64(t.Successes) / float64(n) * 100
	}
	return t
}

// ExportJSON renders entries as an indented JSON array.
func ExportJSON(entries []BatchSummary) ([]byte, error) {
	if entries == nil {
		entries = []BatchSummary{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting history: %w", err)
	}
	return data, nil
}

var csvColumns = []string{
	"timestamp", "cliente", "projeto_nome", "projeto_id", "consultor_nome",
	"arquivo", "sucessos", "falhas", "total_registros",
}

// ExportCSV renders entries as UTF-8 CSV with a byte order mark so
// spreadsheet tools pick the right encoding.
func ExportCSV(entries []BatchSummary) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, fmt.Errorf("exporting history: %w", err)
	}
	for _, e := range entries {
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.Format(time.RFC3339)
		}
		row := []string{
			ts, e.Client, e.Extra(ExtraProjectName), e.ProjectID, e.ConsultantName,
			e.Extra(ExtraSourceFile), strconv.Itoa(e.Successes), strconv.Itoa(e.Failures),
			strconv.Itoa(e.TotalRecords),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("exporting history: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("exporting history: %w", err)
	}
	return buf.Bytes(), nil
}
