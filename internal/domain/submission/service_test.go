package submission_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/fingerprint"
	"github.com/rpggio/apontador/internal/repository/mocks"
	"github.com/rpggio/apontador/internal/teamwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sheetsMock struct{ mock.Mock }

func (m *sheetsMock) Get(ctx context.Context, id string) (*sheet.ServiceSheet, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*sheet.ServiceSheet); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *sheetsMock) AssignTask(ctx context.Context, sheetID, recordID string, t sheet.TaskRef) (*sheet.ActivityRecord, error) {
	args := m.Called(ctx, sheetID, recordID, t)
	if r, ok := args.Get(0).(*sheet.ActivityRecord); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *sheetsMock) Complete(ctx context.Context, id string) (*sheet.ServiceSheet, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*sheet.ServiceSheet); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type posterMock struct{ mock.Mock }

func (m *posterMock) PostTimeEntry(ctx context.Context, e teamwork.Entry) (teamwork.PostResult, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(teamwork.PostResult), args.Error(1)
}

type suggesterMock struct{ mock.Mock }

func (m *suggesterMock) Suggest(ctx context.Context, req task.SuggestRequest) task.SuggestResult {
	args := m.Called(ctx, req)
	return args.Get(0).(task.SuggestResult)
}

type historyMock struct{ mock.Mock }

func (m *historyMock) Record(ctx context.Context, entry history.BatchSummary) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func testSheet() *sheet.ServiceSheet {
	return &sheet.ServiceSheet{
		ID:          "s1",
		Client:      "12345 - Loja Exemplo",
		ProjectID:   "900",
		ServiceType: "Implantação",
		HourlyRate:  180,
		FichaNumber: "987",
		SourceName:  "ficha.pdf",
		Status:      sheet.StatusInProgress,
		Records: []sheet.ActivityRecord{
			{ID: "r1", SheetID: "s1", Position: 0, Date: "05/01/2024", ExecutorName: "Maria Silva", StartTime: "08:00:00", EndTime: "12:00:00", TotalDuration: "04:00:00", Billable: true, Description: "Configuração", TaskID: "42", TaskName: "Suporte"},
			{ID: "r2", SheetID: "s1", Position: 1, Date: "06/01/2024", ExecutorName: "Maria Silva", StartTime: "13:00:00", EndTime: "15:30:00", TotalDuration: "02:30:00", Billable: false, Description: "Treinamento", TaskID: "43", TaskName: "Treinamento"},
		},
	}
}

type fixture struct {
	sheets  *sheetsMock
	poster  *posterMock
	tasks   *suggesterMock
	entries *mocks.EntryRepository
	history *historyMock
}

func newFixture(sh *sheet.ServiceSheet) *fixture {
	f := &fixture{
		sheets:  &sheetsMock{},
		poster:  &posterMock{},
		tasks:   &suggesterMock{},
		entries: &mocks.EntryRepository{},
		history: &historyMock{},
	}
	f.sheets.On("Get", mock.Anything, sh.ID).Return(sh, nil)
	return f
}

func (f *fixture) service(opts submission.Options) *submission.Service {
	return submission.NewService(f.sheets, f.poster, f.tasks, f.entries, f.history, opts, nil)
}

func TestSubmit_PostsAllRecordsInOrder(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	f := newFixture(sh)

	var posted []teamwork.Entry
	f.poster.On("PostTimeEntry", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { posted = append(posted, args.Get(1).(teamwork.Entry)) }).
		Return(teamwork.PostResult{EntryID: "e1", Endpoint: "/tasks/42/time_entries.json", Variant: "kebab-num-int-time-billint", Status: 201, Tried: 1}, nil)
	f.entries.On("Save", mock.Anything, mock.AnythingOfType("*submission.PostedEntry")).Return(nil)
	f.history.On("Record", mock.Anything, mock.MatchedBy(func(e history.BatchSummary) bool {
		return e.Successes == 2 && e.Failures == 0 && e.TotalRecords == 2 &&
			e.ConsultantName == "Ana Souza" && e.ProjectID == "900" &&
			e.Extra(history.ExtraSourceFile) == "ficha.pdf" &&
			e.Extra(history.ExtraProjectName) == "Projeto X"
	})).Return(nil)
	f.sheets.On("Complete", mock.Anything, "s1").Return(sh, nil)

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{
		SheetID:        "s1",
		ProjectName:    "Projeto X",
		ConsultantName: "Ana Souza",
		ConsultantID:   "77",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Successes)
	require.Equal(t, 0, res.Failures)
	require.True(t, res.Completed)
	require.Len(t, res.Records, 2)
	require.Equal(t, "r1", res.Records[0].RecordID)
	require.Equal(t, submission.OutcomePosted, res.Records[0].Outcome)

	require.Len(t, posted, 2)
	require.Equal(t, "42", posted[0].TaskID)
	require.Equal(t, "43", posted[1].TaskID)
	require.Equal(t, "77", posted[0].PersonID)
	require.Equal(t, "900", posted[0].ProjectID)
	require.Equal(t, "04:00:00", posted[0].Total)
	require.False(t, posted[1].Billable)

	f.entries.AssertNumberOfCalls(t, "Save", 2)
	f.history.AssertExpectations(t)
	f.sheets.AssertExpectations(t)
}

func TestSubmit_FailureDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	f := newFixture(sh)

	postErr := &teamwork.PostError{Tried: 24, Attempts: []teamwork.Attempt{{Endpoint: "/time_entries.json", Variant: "camel-num-int-notime", Status: 422}}}
	f.poster.On("PostTimeEntry", mock.Anything, mock.MatchedBy(func(e teamwork.Entry) bool { return e.TaskID == "42" })).
		Return(teamwork.PostResult{}, postErr)
	f.poster.On("PostTimeEntry", mock.Anything, mock.MatchedBy(func(e teamwork.Entry) bool { return e.TaskID == "43" })).
		Return(teamwork.PostResult{EntryID: "e2", Status: 201}, nil)
	f.entries.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.history.On("Record", mock.Anything, mock.MatchedBy(func(e history.BatchSummary) bool {
		return e.Successes == 1 && e.Failures == 1 && len(e.Errors) == 1
	})).Return(nil)
	f.sheets.On("Complete", mock.Anything, "s1").Return(sh, nil)

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Successes)
	require.Equal(t, 1, res.Failures)
	require.Equal(t, submission.OutcomeFailed, res.Records[0].Outcome)
	require.Len(t, res.Records[0].Attempts, 1)
	require.Equal(t, submission.OutcomePosted, res.Records[1].Outcome)
	require.Len(t, res.Errors, 1)
	require.True(t, strings.HasPrefix(res.Errors[0], "Registro 1 (Maria Silva) → Tarefa #42: "))
	require.True(t, res.Completed)
	f.entries.AssertNumberOfCalls(t, "Save", 1)
}

func TestSubmit_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	f := newFixture(sh)

	dupKey := fingerprint.Compute(submission.KeyFor(sh, &sh.Records[0], "42"))
	f.entries.On("Exists", mock.Anything, dupKey).Return(true, nil)
	f.entries.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	f.entries.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.poster.On("PostTimeEntry", mock.Anything, mock.Anything).Return(teamwork.PostResult{Status: 201}, nil)
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.sheets.On("Complete", mock.Anything, "s1").Return(sh, nil)

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1", SkipDuplicates: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, 1, res.Successes)
	require.Equal(t, submission.OutcomeSkipped, res.Records[0].Outcome)
	f.poster.AssertNumberOfCalls(t, "PostTimeEntry", 1)
}

func TestSubmit_DryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testSheet())

	res, err := f.service(submission.Options{RequireConsultant: true}).Submit(ctx, submission.Request{SheetID: "s1", DryRun: true})
	require.NoError(t, err)
	require.True(t, res.DryRun)
	require.False(t, res.Completed)
	require.Len(t, res.Records, 2)
	for _, rr := range res.Records {
		require.Equal(t, submission.OutcomeDryRun, rr.Outcome)
		require.Len(t, rr.Fingerprint, 16)
	}
	require.Contains(t, res.Report, "Horas cobradas: 04:00 | Não cobradas: 02:30 | Total: 06:30")
	f.poster.AssertNotCalled(t, "PostTimeEntry", mock.Anything, mock.Anything)
	f.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	f.sheets.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSubmit_SelectedRecordsKeepRequestOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testSheet())

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1", RecordIDs: []string{"r2", "r1"}, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, "r2", res.Records[0].RecordID)
	require.Equal(t, "r1", res.Records[1].RecordID)

	_, err = f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1", RecordIDs: []string{"zz"}, DryRun: true})
	require.ErrorIs(t, err, sheet.ErrRecordNotFound)
}

func TestSubmit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFixture(testSheet())
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1"})
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.False(t, res.Completed)
	require.Empty(t, res.Records)
	f.poster.AssertNotCalled(t, "PostTimeEntry", mock.Anything, mock.Anything)
	f.sheets.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSubmit_SuggestsMissingTask(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	sh.Records = sh.Records[:1]
	sh.Records[0].TaskID, sh.Records[0].TaskName = "", ""
	f := newFixture(sh)

	f.tasks.On("Suggest", mock.Anything, mock.MatchedBy(func(r task.SuggestRequest) bool {
		return r.Query.ProjectID == "900" && r.Query.Tag == "apontavel" && r.Meta.Ficha == "987" && r.Activity == "Configuração"
	})).Return(task.SuggestResult{Suggestion: &task.Suggestion{Task: task.Descriptor{ID: "50", Name: "Configuração fiscal"}, Score: 2}})
	f.sheets.On("AssignTask", mock.Anything, "s1", "r1", sheet.TaskRef{ID: "50", Name: "Configuração fiscal"}).Return(&sh.Records[0], nil)
	f.poster.On("PostTimeEntry", mock.Anything, mock.MatchedBy(func(e teamwork.Entry) bool { return e.TaskID == "50" })).
		Return(teamwork.PostResult{Status: 201}, nil)
	f.entries.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.sheets.On("Complete", mock.Anything, "s1").Return(sh, nil)

	res, err := f.service(submission.Options{Tag: "apontavel"}).Submit(ctx, submission.Request{SheetID: "s1", SuggestTasks: true})
	require.NoError(t, err)
	require.True(t, res.Records[0].Suggested)
	require.Equal(t, "50", res.Records[0].TaskID)
	f.sheets.AssertExpectations(t)
	f.poster.AssertExpectations(t)
}

func TestSubmit_DryRunSuggestionIsNotStored(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	sh.Records = sh.Records[:1]
	sh.Records[0].TaskID, sh.Records[0].TaskName = "", ""
	f := newFixture(sh)

	f.tasks.On("Suggest", mock.Anything, mock.Anything).
		Return(task.SuggestResult{Suggestion: &task.Suggestion{Task: task.Descriptor{ID: "50", Name: "Configuração fiscal"}, Score: 2}})

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1", DryRun: true, SuggestTasks: true})
	require.NoError(t, err)
	require.True(t, res.Records[0].Suggested)
	require.Equal(t, "50", res.Records[0].TaskID)
	require.Equal(t, submission.OutcomeDryRun, res.Records[0].Outcome)
	f.sheets.AssertNotCalled(t, "AssignTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.poster.AssertNotCalled(t, "PostTimeEntry", mock.Anything, mock.Anything)
}

func TestSubmit_ConsultantNameKeepsMatchedPerson(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	sh.Records = sh.Records[:1]
	sh.Records[0].ExecutorID = "555"
	f := newFixture(sh)

	var posted teamwork.Entry
	f.poster.On("PostTimeEntry", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { posted = args.Get(1).(teamwork.Entry) }).
		Return(teamwork.PostResult{Status: 201}, nil)
	f.entries.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.sheets.On("Complete", mock.Anything, "s1").Return(sh, nil)

	res, err := f.service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1", ConsultantName: "operador"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Successes)
	require.Equal(t, "555", posted.PersonID)
	require.Equal(t, "operador", res.Records[0].Executor)
}

func TestSubmit_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := newFixture(testSheet()).service(submission.Options{}).Submit(ctx, submission.Request{})
	require.ErrorIs(t, err, submission.ErrInvalidInput)

	_, err = newFixture(testSheet()).service(submission.Options{RequireConsultant: true}).Submit(ctx, submission.Request{SheetID: "s1"})
	require.ErrorIs(t, err, submission.ErrMissingConsultant)

	sh := testSheet()
	sh.ProjectID = ""
	_, err = newFixture(sh).service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1"})
	require.ErrorIs(t, err, submission.ErrMissingProject)

	sh = testSheet()
	sh.Records = nil
	_, err = newFixture(sh).service(submission.Options{}).Submit(ctx, submission.Request{SheetID: "s1"})
	require.ErrorIs(t, err, submission.ErrNoRecords)

	f := &fixture{sheets: &sheetsMock{}}
	f.sheets.On("Get", mock.Anything, "gone").Return(nil, sheet.ErrSheetNotFound)
	_, err = submission.NewService(f.sheets, nil, nil, nil, nil, submission.Options{}, nil).Submit(ctx, submission.Request{SheetID: "gone"})
	require.ErrorIs(t, err, sheet.ErrSheetNotFound)
}

func TestSubmit_WritesReport(t *testing.T) {
	ctx := context.Background()
	sh := testSheet()
	f := newFixture(sh)
	f.poster.On("PostTimeEntry", mock.Anything, mock.Anything).Return(teamwork.PostResult{Status: 201}, nil)
	f.entries.On("Save", mock.Anything, mock.Anything).Return(errors.New("locked"))
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.sheets.On("Complete", mock.Anything, "s1").Return(sh, nil)

	dir := t.TempDir()
	res, err := f.service(submission.Options{ReportDir: dir}).Submit(ctx, submission.Request{SheetID: "s1"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Successes)
	require.NotEmpty(t, res.ReportPath)

	data, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "FICHA DE SERVIÇO 987")
	require.Contains(t, string(data), "Valor/hora: R$ 180,00 | Valor total: R$ 720,00")
	require.Contains(t, string(data), "Tarefa: #42 Suporte")
}

func TestKeyFor_IgnoresDescription(t *testing.T) {
	sh := testSheet()
	a := sh.Records[0]
	b := a
	b.Description = "outra descrição"

	require.Equal(t,
		fingerprint.Compute(submission.KeyFor(sh, &a, "42")),
		fingerprint.Compute(submission.KeyFor(sh, &b, "42")))
	require.NotEqual(t,
		fingerprint.Compute(submission.KeyFor(sh, &a, "42")),
		fingerprint.Compute(submission.KeyFor(sh, &a, "43")))

	sh.FichaNumber = ""
	require.Equal(t, "s1", submission.KeyFor(sh, &a, "42").SheetID)
}

func TestSumHours(t *testing.T) {
	h := submission.SumHours(testSheet().Records)
	require.Equal(t, 240, h.BillableMinutes)
	require.Equal(t, 150, h.NonBillableMinutes)
	require.Equal(t, 390, h.TotalMinutes())
}
