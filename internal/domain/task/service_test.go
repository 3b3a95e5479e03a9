package task_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/teamwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sourceMock struct {
	mock.Mock
}

func (m *sourceMock) Tasks(ctx context.Context, q teamwork.TaskQuery) ([]teamwork.Task, error) {
	args := m.Called(ctx, q)
	tasks, _ := args.Get(0).([]teamwork.Task)
	return tasks, args.Error(1)
}

func TestService_EligibleUsesCache(t *testing.T) {
	ctx := context.Background()
	src := &sourceMock{}
	src.On("Tasks", ctx, teamwork.TaskQuery{ProjectID: "42", IncludeCompleted: true}).Return(tree(), nil).Once()

	svc := task.NewService(src, task.NewCache(), nil, nil, nil)
	q := task.Query{ProjectID: "42", Tag: "billable", InheritTags: true, IncludeCompleted: true}

	first := svc.Eligible(ctx, q)
	require.Empty(t, first.Warning)
	require.Len(t, first.Tasks, 3)
	require.Equal(t, "Child", first.Tasks[0].Name)

	second := svc.Eligible(ctx, q)
	require.Equal(t, first.Tasks, second.Tasks)
	src.AssertExpectations(t)
}

func TestService_EligibleRefreshInvalidates(t *testing.T) {
	ctx := context.Background()
	src := &sourceMock{}
	src.On("Tasks", ctx, mock.Anything).Return(tree(), nil).Twice()

	svc := task.NewService(src, task.NewCache(), nil, nil, nil)
	svc.Eligible(ctx, task.Query{ProjectID: "42"})
	svc.Eligible(ctx, task.Query{ProjectID: "42", Refresh: true})
	src.AssertNumberOfCalls(t, "Tasks", 2)
}

func TestService_EligibleFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	src := &sourceMock{}
	src.On("Tasks", ctx, mock.Anything).Return(nil, errors.New("timeout"))

	svc := task.NewService(src, task.NewCache(), nil, nil, nil)
	listing := svc.Eligible(ctx, task.Query{ProjectID: "42"})
	require.Empty(t, listing.Tasks)
	require.Contains(t, listing.Warning, "timeout")
}

func TestService_SuggestProposesPhase(t *testing.T) {
	ctx := context.Background()
	src := &sourceMock{}
	src.On("Tasks", ctx, mock.Anything).Return([]teamwork.Task{
		{ID: "10", Name: "Treinamento a Usuários", Tags: []string{"apontavel"}},
		{ID: "11", Name: "Tributação", Tags: []string{"apontavel"}},
	}, nil)

	phases := map[string][]string{"Treinamento": {"Treinamento a Usuários"}}
	svc := task.NewService(src, nil, nil, phases, nil)
	res := svc.Suggest(ctx, task.SuggestRequest{
		Query:    task.Query{ProjectID: "42", Tag: "apontavel"},
		Activity: "Treinamento do time de vendas",
	})
	require.Equal(t, "Treinamento a Usuários", res.Phase)
	require.NotNil(t, res.Suggestion)
	require.Equal(t, "10", res.Suggestion.Task.ID)
}
