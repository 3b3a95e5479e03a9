package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/people"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/teamwork"
	"github.com/stretchr/testify/require"
)

type sheetStub struct {
	ingestFn   func(context.Context, sheet.IngestRequest) (*sheet.IngestResult, error)
	getFn      func(context.Context, string) (*sheet.ServiceSheet, error)
	listFn     func(context.Context, sheet.ListOptions) ([]sheet.SheetSummary, error)
	assignFn   func(context.Context, string, string, sheet.TaskRef) (*sheet.ActivityRecord, error)
	executorFn func(context.Context, string, string, string) (*sheet.ActivityRecord, error)
	describeFn func(context.Context, string, string, string) (*sheet.ActivityRecord, error)
}

func (s sheetStub) Ingest(ctx context.Context, req sheet.IngestRequest) (*sheet.IngestResult, error) {
	return s.ingestFn(ctx, req)
}
func (s sheetStub) Get(ctx context.Context, id string) (*sheet.ServiceSheet, error) {
	return s.getFn(ctx, id)
}
func (s sheetStub) List(ctx context.Context, opts sheet.ListOptions) ([]sheet.SheetSummary, error) {
	return s.listFn(ctx, opts)
}
func (s sheetStub) AssignTask(ctx context.Context, sheetID, recordID string, t sheet.TaskRef) (*sheet.ActivityRecord, error) {
	return s.assignFn(ctx, sheetID, recordID, t)
}
func (s sheetStub) AssignExecutor(ctx context.Context, sheetID, recordID, executorID string) (*sheet.ActivityRecord, error) {
	return s.executorFn(ctx, sheetID, recordID, executorID)
}
func (s sheetStub) UpdateDescription(ctx context.Context, sheetID, recordID, description string) (*sheet.ActivityRecord, error) {
	return s.describeFn(ctx, sheetID, recordID, description)
}

type taskStub struct {
	eligibleFn func(context.Context, task.Query) task.Listing
	suggestFn  func(context.Context, task.SuggestRequest) task.SuggestResult
}

func (s taskStub) Eligible(ctx context.Context, q task.Query) task.Listing {
	return s.eligibleFn(ctx, q)
}
func (s taskStub) Suggest(ctx context.Context, req task.SuggestRequest) task.SuggestResult {
	return s.suggestFn(ctx, req)
}

type peopleStub struct {
	listFn func(context.Context, string) people.Roster
}

func (s peopleStub) List(ctx context.Context, projectID string) people.Roster {
	return s.listFn(ctx, projectID)
}

type submissionStub struct {
	submitFn func(context.Context, submission.Request) (*submission.Result, error)
	postedFn func(context.Context, string) ([]submission.PostedEntry, error)
}

func (s submissionStub) Submit(ctx context.Context, req submission.Request) (*submission.Result, error) {
	return s.submitFn(ctx, req)
}
func (s submissionStub) PostedEntries(ctx context.Context, sheetID string) ([]submission.PostedEntry, error) {
	return s.postedFn(ctx, sheetID)
}

type historyStub struct {
	queryFn func(context.Context, history.Filter) (history.Report, error)
	clearFn func(context.Context) error
}

func (s historyStub) Query(ctx context.Context, f history.Filter) (history.Report, error) {
	return s.queryFn(ctx, f)
}
func (s historyStub) Clear(ctx context.Context) error { return s.clearFn(ctx) }

type remoteStub struct {
	testFn     func(context.Context) (teamwork.Account, error)
	projectsFn func(context.Context) ([]teamwork.Project, error)
	entriesFn  func(context.Context, string, string) ([]teamwork.TimeEntry, error)
}

func (s remoteStub) TestConnection(ctx context.Context) (teamwork.Account, error) {
	return s.testFn(ctx)
}
func (s remoteStub) Projects(ctx context.Context) ([]teamwork.Project, error) {
	return s.projectsFn(ctx)
}
func (s remoteStub) TimeEntries(ctx context.Context, taskID, date string) ([]teamwork.TimeEntry, error) {
	return s.entriesFn(ctx, taskID, date)
}

func testSheet() *sheet.ServiceSheet {
	return &sheet.ServiceSheet{
		ID:          "s1",
		Client:      "12345 - Loja",
		ProjectID:   "900",
		FichaNumber: "987",
		Ticket:      "4512",
		Status:      sheet.StatusInProgress,
		Records: []sheet.ActivityRecord{
			{ID: "r1", SheetID: "s1", ExecutorName: "Maria Silva", TotalDuration: "04:00:00", Billable: true},
			{ID: "r2", SheetID: "s1", ExecutorName: "Maria Silva", TotalDuration: "01:00:00"},
		},
	}
}

func connect(t *testing.T, svc Services) *sdkmcp.ClientSession {
	t.Helper()
	return connectWith(t, Config{
		Services:      svc,
		TransportMode: "stdio",
		DefaultTag:    "apontavel",
		InheritTags:   true,
		Phases:        []string{"Configurações", "Fechamentos"},
	})
}

func connectWith(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(cfg)
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func resultText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestTools_Listed(t *testing.T) {
	cs := connect(t, Services{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"extract_sheet", "get_sheet", "list_sheets", "list_projects", "list_tasks",
		"suggest_task", "list_phases", "list_people", "assign_task", "submit_sheet", "get_history", "test_connection",
	} {
		require.True(t, names[want], want)
	}
}

func TestExtractSheet_MatchesExecutorsOnce(t *testing.T) {
	var listed, assigned int
	cs := connect(t, Services{
		Sheets: sheetStub{
			ingestFn: func(_ context.Context, req sheet.IngestRequest) (*sheet.IngestResult, error) {
				require.Equal(t, "ficha.txt", req.SourceName)
				require.Equal(t, "hello", string(req.Data))
				return &sheet.IngestResult{Sheet: testSheet(), Strategy: "strict", Lines: 10}, nil
			},
			executorFn: func(_ context.Context, _, _, id string) (*sheet.ActivityRecord, error) {
				assigned++
				require.Equal(t, "77", id)
				return &sheet.ActivityRecord{}, nil
			},
		},
		People: peopleStub{
			listFn: func(_ context.Context, projectID string) people.Roster {
				listed++
				require.Equal(t, "900", projectID)
				return people.Roster{People: []teamwork.Person{{ID: "12", Name: "Mario Souza"}, {ID: "77", Name: "Maria Silva"}}}
			},
		},
	})

	var out ExtractSheetResult
	res := callTool(t, cs, "extract_sheet", map[string]any{
		"content_base64":  "aGVsbG8=",
		"source_name":     "ficha.txt",
		"match_executors": true,
	}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Equal(t, "strict", out.Strategy)
	require.Equal(t, 1, listed)
	require.Equal(t, 2, assigned)
	require.Equal(t, "77", out.Sheet.Records[1].ExecutorID)
}

func TestExtractSheet_InvalidBase64(t *testing.T) {
	cs := connect(t, Services{})
	res := callTool(t, cs, "extract_sheet", map[string]any{"content_base64": "%%%"}, nil)
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "INVALID_INPUT")
}

func TestExtractSheet_PathOnlyOverStdio(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ficha.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o600))

	sheets := sheetStub{ingestFn: func(_ context.Context, req sheet.IngestRequest) (*sheet.IngestResult, error) {
		require.Equal(t, "ficha.txt", req.SourceName)
		require.Equal(t, "hello", string(req.Data))
		return &sheet.IngestResult{Sheet: testSheet(), Strategy: "strict"}, nil
	}}

	cs := connect(t, Services{Sheets: sheets})
	res := callTool(t, cs, "extract_sheet", map[string]any{"path": file}, nil)
	require.False(t, res.IsError, resultText(res))

	var ingested bool
	cs = connectWith(t, Config{
		Services: Services{Sheets: sheetStub{ingestFn: func(context.Context, sheet.IngestRequest) (*sheet.IngestResult, error) {
			ingested = true
			return nil, errors.New("unexpected ingest")
		}}},
		TransportMode: "http",
	})
	res = callTool(t, cs, "extract_sheet", map[string]any{"path": file}, nil)
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "INVALID_INPUT")
	require.Contains(t, resultText(res), "only accepted over stdio")
	require.False(t, ingested)
}

func TestGetSheet_ErrorMapping(t *testing.T) {
	cs := connect(t, Services{
		Sheets: sheetStub{getFn: func(context.Context, string) (*sheet.ServiceSheet, error) {
			return nil, sheet.ErrSheetNotFound
		}},
	})
	res := callTool(t, cs, "get_sheet", map[string]any{"id": "nope"}, nil)
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "SHEET_NOT_FOUND")
}

func TestGetSheet_IncludesBillingAndPosted(t *testing.T) {
	cs := connect(t, Services{
		Sheets: sheetStub{getFn: func(context.Context, string) (*sheet.ServiceSheet, error) { return testSheet(), nil }},
		Submission: submissionStub{postedFn: func(_ context.Context, id string) ([]submission.PostedEntry, error) {
			return []submission.PostedEntry{{Fingerprint: "abc", SheetID: id, RecordID: "r1"}}, nil
		}},
	})
	var out GetSheetResult
	res := callTool(t, cs, "get_sheet", map[string]any{"id": "s1"}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Equal(t, 240, out.Billing.BillableMinutes)
	require.Equal(t, 60, out.Billing.NonBillableMinutes)
	require.Len(t, out.Posted, 1)
}

func TestListTasks_UsesDefaultTag(t *testing.T) {
	cs := connect(t, Services{
		Tasks: taskStub{eligibleFn: func(_ context.Context, q task.Query) task.Listing {
			require.Equal(t, "apontavel", q.Tag)
			require.True(t, q.InheritTags)
			return task.Listing{Tasks: []task.Descriptor{}, Warning: "could not fetch tasks: boom"}
		}},
	})
	var out task.Listing
	res := callTool(t, cs, "list_tasks", map[string]any{"project_id": "900"}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Empty(t, out.Tasks)
	require.Contains(t, out.Warning, "boom")

	res = callTool(t, cs, "list_tasks", map[string]any{"project_id": ""}, nil)
	require.True(t, res.IsError)
}

func TestListTasks_InheritTagsOverride(t *testing.T) {
	var got []bool
	tasks := taskStub{
		eligibleFn: func(_ context.Context, q task.Query) task.Listing {
			got = append(got, q.InheritTags)
			return task.Listing{Tasks: []task.Descriptor{}}
		},
		suggestFn: func(_ context.Context, req task.SuggestRequest) task.SuggestResult {
			got = append(got, req.Query.InheritTags)
			return task.SuggestResult{}
		},
	}

	cs := connect(t, Services{Tasks: tasks})
	callTool(t, cs, "list_tasks", map[string]any{"project_id": "900", "inherit_tags": false}, nil)
	callTool(t, cs, "suggest_task", map[string]any{"project_id": "900", "activity": "suporte", "inherit_tags": false}, nil)

	cs = connectWith(t, Config{Services: Services{Tasks: tasks}, TransportMode: "stdio"})
	callTool(t, cs, "list_tasks", map[string]any{"project_id": "900"}, nil)
	callTool(t, cs, "suggest_task", map[string]any{"project_id": "900", "activity": "suporte", "inherit_tags": true}, nil)

	require.Equal(t, []bool{false, false, false, true}, got)
}

func TestSuggestTask_UsesSheetMeta(t *testing.T) {
	cs := connect(t, Services{
		Sheets: sheetStub{getFn: func(context.Context, string) (*sheet.ServiceSheet, error) { return testSheet(), nil }},
		Tasks: taskStub{suggestFn: func(_ context.Context, req task.SuggestRequest) task.SuggestResult {
			require.Equal(t, "900", req.Query.ProjectID)
			require.Equal(t, "987", req.Meta.Ficha)
			require.Equal(t, "4512", req.Meta.Ticket)
			return task.SuggestResult{Suggestion: &task.Suggestion{Task: task.Descriptor{ID: "42", Name: "Suporte"}, Score: 3}, Phase: "Fechamentos"}
		}},
	})
	var out task.SuggestResult
	res := callTool(t, cs, "suggest_task", map[string]any{"sheet_id": "s1", "activity": "suporte"}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Equal(t, "42", out.Suggestion.Task.ID)
}

func TestListPhases_KeepsOrder(t *testing.T) {
	cs := connect(t, Services{})
	var out ListPhasesResult
	res := callTool(t, cs, "list_phases", nil, &out)
	require.False(t, res.IsError, resultText(res))
	require.Equal(t, []string{"Configurações", "Fechamentos"}, out.Phases)
}

func TestSubmitSheet(t *testing.T) {
	cs := connect(t, Services{
		Submission: submissionStub{submitFn: func(_ context.Context, req submission.Request) (*submission.Result, error) {
			require.Equal(t, "s1", req.SheetID)
			require.Equal(t, []string{"r2"}, req.RecordIDs)
			require.True(t, req.SkipDuplicates)
			require.Equal(t, "Ana", req.ConsultantName)
			return &submission.Result{SheetID: "s1", Successes: 1, Records: []submission.RecordResult{{RecordID: "r2", Outcome: submission.OutcomePosted}}, Completed: true}, nil
		}},
	})
	var out submission.Result
	res := callTool(t, cs, "submit_sheet", map[string]any{
		"sheet_id":        "s1",
		"record_ids":      []string{"r2"},
		"consultant_name": "Ana",
		"skip_duplicates": true,
	}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Equal(t, 1, out.Successes)
	require.True(t, out.Completed)
}

func TestSubmitSheet_MissingConsultant(t *testing.T) {
	cs := connect(t, Services{
		Submission: submissionStub{submitFn: func(context.Context, submission.Request) (*submission.Result, error) {
			return nil, submission.ErrMissingConsultant
		}},
	})
	res := callTool(t, cs, "submit_sheet", map[string]any{"sheet_id": "s1"}, nil)
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "CONSULTANT_REQUIRED")
}

func TestSubmitSheet_DefaultOperator(t *testing.T) {
	cs := connectWith(t, Config{
		Services: Services{Submission: submissionStub{submitFn: func(_ context.Context, req submission.Request) (*submission.Result, error) {
			require.Equal(t, "Maria Silva", req.ConsultantName)
			return &submission.Result{SheetID: req.SheetID}, nil
		}}},
		TransportMode:   "stdio",
		DefaultOperator: "Maria Silva",
	})
	res := callTool(t, cs, "submit_sheet", map[string]any{"sheet_id": "s1"}, nil)
	require.False(t, res.IsError, resultText(res))
}

func TestGetHistory_FilterAndExport(t *testing.T) {
	cs := connect(t, Services{
		History: historyStub{queryFn: func(_ context.Context, f history.Filter) (history.Report, error) {
			require.Equal(t, 2024, f.From.Year())
			require.Equal(t, 5, f.To.Day())
			return history.Report{
				Entries: []history.BatchSummary{{Client: "Loja", Successes: 2, TotalRecords: 2}},
				Totals:  history.Totals{Sessions: 1, Successes: 2, SuccessRate: 100},
			}, nil
		}},
	})
	var out GetHistoryResult
	res := callTool(t, cs, "get_history", map[string]any{"from": "2024-01-01", "to": "05/01/2024", "format": "csv"}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Equal(t, 1, out.Totals.Sessions)
	require.Contains(t, out.Export, "Loja")

	res = callTool(t, cs, "get_history", map[string]any{"from": "ontem"}, nil)
	require.True(t, res.IsError)
}

func TestClearHistory_RequiresConfirm(t *testing.T) {
	cleared := false
	cs := connect(t, Services{History: historyStub{clearFn: func(context.Context) error { cleared = true; return nil }}})

	res := callTool(t, cs, "clear_history", map[string]any{"confirm": false}, nil)
	require.True(t, res.IsError)
	require.False(t, cleared)

	res = callTool(t, cs, "clear_history", map[string]any{"confirm": true}, nil)
	require.False(t, res.IsError, resultText(res))
	require.True(t, cleared)
}

func TestTestConnection_ReportsFailure(t *testing.T) {
	cs := connect(t, Services{Remote: remoteStub{testFn: func(context.Context) (teamwork.Account, error) {
		return teamwork.Account{}, teamwork.ErrNotConfigured
	}}})
	var out TestConnectionResult
	res := callTool(t, cs, "test_connection", map[string]any{}, &out)
	require.False(t, res.IsError, resultText(res))
	require.False(t, out.OK)
	require.Contains(t, out.Error, "TEAMWORK_NOT_CONFIGURED")
}

func TestListTimeEntries_ConvertsDate(t *testing.T) {
	cs := connect(t, Services{Remote: remoteStub{entriesFn: func(_ context.Context, taskID, date string) ([]teamwork.TimeEntry, error) {
		require.Equal(t, "42", taskID)
		require.Equal(t, "20240105", date)
		return []teamwork.TimeEntry{{ID: "1", Minutes: 30}}, nil
	}}})
	var out ListTimeEntriesResult
	res := callTool(t, cs, "list_time_entries", map[string]any{"task_id": "42", "date": "05/01/2024"}, &out)
	require.False(t, res.IsError, resultText(res))
	require.Len(t, out.Entries, 1)
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("other")))
	require.Equal(t, "RECORD_NOT_FOUND", MapError(sheet.ErrRecordNotFound).Code)
	require.Equal(t, "SHEET_COMPLETED", MapError(sheet.ErrSheetCompleted).Code)

	httpErr := &teamwork.HTTPError{Method: "GET", URL: "/projects.json", Status: 500, Body: "boom"}
	apiErr := MapError(errors.Join(errors.New("listing projects"), httpErr))
	require.Equal(t, "TEAMWORK_ERROR", apiErr.Code)
}
