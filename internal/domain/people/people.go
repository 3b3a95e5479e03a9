// Package people resolves sheet executors to project members.
package people

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/rpggio/apontador/internal/observability"
	"github.com/rpggio/apontador/internal/teamwork"
	"github.com/rpggio/apontador/internal/textnorm"
)

// MinSimilarity is the lowest fuzzy score accepted as a match.
const MinSimilarity = 0.8

// Source fetches project members.
type Source interface {
	People(ctx context.Context, projectID string) ([]teamwork.Person, error)
}

// Roster is the member list of a project. Warning is set when the fetch
// failed.
type Roster struct {
	People  []teamwork.Person `json:"people"`
	Warning string            `json:"warning,omitempty"`
}

// Match is a resolved executor.
type Match struct {
	Person     teamwork.Person `json:"person"`
	Similarity float64         `json:"similarity"`
}

// Service lists people and matches executor names.
type Service struct {
	source Source
	logger *slog.Logger
}

// NewService creates a people service.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{source: source, logger: logger}
}

// List returns the members of a project. Failures degrade to an empty
// roster with a warning.
func (s *Service) List(ctx context.Context, projectID string) Roster {
	if strings.TrimSpace(projectID) == "" {
		return Roster{People: []teamwork.Person{}, Warning: "no project selected"}
	}
	people, err := s.source.People(ctx, projectID)
	if err != nil {
		observability.RecordFetchFailure("people")
		s.logger.Warn("people fetch failed", "project_id", projectID, "error", err)
		return Roster{People: []teamwork.Person{}, Warning: fmt.Sprintf("could not fetch people: %v", err)}
	}
	if people == nil {
		people = []teamwork.Person{}
	}
	return Roster{People: people}
}

// Resolve lists the project members and matches name against them.
func (s *Service) Resolve(ctx context.Context, projectID, name string) (Match, bool, string) {
	roster := s.List(ctx, projectID)
	m, ok := MatchName(name, roster.People)
	return m, ok, roster.Warning
}

// MatchName finds the member whose folded name equals name, or failing
// that the most similar one at or above MinSimilarity.
func MatchName(name string, people []teamwork.Person) (Match, bool) {
	want := textnorm.Fold(name)
	if want == "" {
		return Match{}, false
	}

	var best Match
	for _, p := range people {
		got := textnorm.Fold(p.Name)
		if got == want {
			return Match{Person: p, Similarity: 1}, true
		}
		if sim := similarity(want, got); sim > best.Similarity {
			best = Match{Person: p, Similarity: sim}
		}
	}
	return best, best.Similarity >= MinSimilarity
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
