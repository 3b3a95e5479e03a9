package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/apontador/internal/observability"
	"github.com/rpggio/apontador/internal/teamwork"
)

// Service resolves eligible tasks and suggestions for a project.
type Service struct {
	source     Source
	cache      *Cache
	classifier Classifier
	phases     map[string][]string
	logger     *slog.Logger
}

// NewService creates a task service. A nil cache disables caching and a
// nil classifier uses the keyword rules.
func NewService(source Source, cache *Cache, classifier Classifier, phases map[string][]string, logger *slog.Logger) *Service {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{source: source, cache: cache, classifier: classifier, phases: phases, logger: logger}
}

// FetchAll returns the raw task tree, served from cache unless refresh is set.
func (s *Service) FetchAll(ctx context.Context, projectID string, includeCompleted, refresh bool) ([]teamwork.Task, error) {
	if s.cache != nil {
		if refresh {
			s.cache.Invalidate(projectID)
		} else if tasks, ok := s.cache.Get(projectID, includeCompleted); ok {
			return tasks, nil
		}
	}
	tasks, err := s.source.Tasks(ctx, teamwork.TaskQuery{ProjectID: projectID, IncludeCompleted: includeCompleted})
	if err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	if s.cache != nil {
		s.cache.Put(projectID, includeCompleted, tasks)
	}
	return tasks, nil
}

// Eligible returns the deduplicated tasks carrying q.Tag sorted by name.
// A failed fetch yields an empty listing with a warning, never an error.
func (s *Service) Eligible(ctx context.Context, q Query) Listing {
	if strings.TrimSpace(q.ProjectID) == "" {
		return Listing{Tasks: []Descriptor{}, Warning: "no project selected"}
	}
	raw, err := s.FetchAll(ctx, q.ProjectID, q.IncludeCompleted, q.Refresh)
	if err != nil {
		observability.RecordFetchFailure("tasks")
		s.logger.Warn("task fetch failed", "project_id", q.ProjectID, "error", err)
		return Listing{Tasks: []Descriptor{}, Warning: fmt.Sprintf("could not fetch tasks: %v", err)}
	}

	tasks := Dedup(FilterByTag(Flatten(raw, q.InheritTags), q.Tag))
	SortByName(tasks)
	return Listing{Tasks: tasks}
}

// SuggestRequest asks for the best task for one activity.
type SuggestRequest struct {
	Query    Query
	Activity string
	Phase    string
	Meta     Meta
}

// SuggestResult holds the suggestion and the phase used for scoring.
type SuggestResult struct {
	Suggestion *Suggestion `json:"suggestion,omitempty"`
	Phase      string      `json:"phase,omitempty"`
	Warning    string      `json:"warning,omitempty"`
}

// Suggest picks the best eligible task for an activity. Without a phase,
// one is proposed from the classified service type.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) SuggestResult {
	listing := s.Eligible(ctx, req.Query)
	phase := req.Phase
	if strings.TrimSpace(phase) == "" {
		phase = s.ProposePhase(req.Activity)
	}
	res := SuggestResult{Phase: phase, Warning: listing.Warning}
	if sug, ok := Suggest(req.Activity, phase, req.Meta, listing.Tasks); ok {
		res.Suggestion = &sug
	}
	return res
}

// ProposePhase classifies the activity and maps the service type to a phase.
func (s *Service) ProposePhase(activity string) string {
	return PhaseFor(s.classifier.Classify(activity), s.phases)
}
