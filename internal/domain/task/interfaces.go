package task

import (
	"context"

	"github.com/rpggio/apontador/internal/teamwork"
)

// Source fetches the raw task tree of a project.
type Source interface {
	Tasks(ctx context.Context, q teamwork.TaskQuery) ([]teamwork.Task, error)
}

// Classifier proposes a service type for an activity description.
type Classifier interface {
	Classify(text string) string
}
