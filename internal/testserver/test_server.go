package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/people"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/extract"
	"github.com/rpggio/apontador/internal/mcp"
	"github.com/rpggio/apontador/internal/sqlite"
	"github.com/rpggio/apontador/internal/teamwork"
	"github.com/stretchr/testify/require"
)

// TestServer runs the whole stack against a fake Teamwork API.
type TestServer struct {
	Server   *httptest.Server
	Teamwork *FakeTeamwork
	DB       *sqlite.DB
	Token    string
	Operator string
	Dir      string
}

func New(t *testing.T, token, operator string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	tw := NewFakeTeamwork()
	dir := t.TempDir()

	client := teamwork.NewClient(teamwork.Options{
		BaseURL:      tw.URL(),
		APIKey:       "twp_test",
		AuthMode:     teamwork.AuthBasic,
		FetchTimeout: 5 * time.Second,
		PostTimeout:  5 * time.Second,
	})

	sheetSvc := sheet.NewService(sqlite.NewSheetRepository(db), extract.NewExtractor(), sheet.Defaults{
		ServiceType: "Implantação",
		HourlyRate:  180,
	}, nil)
	taskSvc := task.NewService(client, task.NewCache(), task.NewKeywordClassifier(), nil, nil)
	peopleSvc := people.NewService(client, nil)
	historySvc := history.NewService(history.NewFileStore(filepath.Join(dir, "lancamentos_log.json")), nil)
	submissionSvc := submission.NewService(sheetSvc, client, taskSvc, sqlite.NewEntryRepository(db), historySvc, submission.Options{
		RequireConsultant: true,
		Tag:               "apontavel",
		InheritTags:       true,
		ReportDir:         filepath.Join(dir, "relatorios"),
	}, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Sheets:     sheetSvc,
			Tasks:      taskSvc,
			People:     peopleSvc,
			Submission: submissionSvc,
			History:    historySvc,
			Remote:     client,
		},
		Resolver:      sqlite.NewAPIKeyRepository(db),
		AuthEnabled:   true,
		TransportMode: "http",
		DefaultTag:    "apontavel",
		InheritTags:   true,
	})

	handler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)
	router := http.NewServeMux()
	router.Handle("/mcp", handler)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Teamwork: tw,
		DB:       db,
		Token:    token,
		Operator: operator,
		Dir:      dir,
	}

	require.NoError(t, ts.AddAPIKey(token, operator))

	t.Cleanup(func() {
		server.Close()
		tw.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, operator string) error {
	return sqlite.NewAPIKeyRepository(ts.DB).Add(context.Background(), token, operator, "test")
}

// Connect opens an MCP client session authenticated with token.
func (ts *TestServer) Connect(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: token}},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

// ReportFiles lists the report files written so far.
func (ts *TestServer) ReportFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(ts.Dir, "relatorios"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

type bearer struct {
	token string
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if b.token != "" {
		r.Header.Set("Authorization", "Bearer "+b.token)
	}
	return http.DefaultTransport.RoundTrip(r)
}

// PostedEntry is a time entry accepted by the fake API.
type PostedEntry struct {
	Path string
	Body map[string]any
}

// FakeTeamwork serves the subset of the Teamwork API the client uses.
type FakeTeamwork struct {
	server *httptest.Server

	mu       sync.Mutex
	projects []map[string]any
	tasks    map[string][]map[string]any
	people   map[string][]map[string]any
	failTask map[string]bool
	posted   []PostedEntry
	nextID   int
}

func NewFakeTeamwork() *FakeTeamwork {
	f := &FakeTeamwork{
		tasks:    map[string][]map[string]any{},
		people:   map[string][]map[string]any{},
		failTask: map[string]bool{},
		nextID:   5000,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeTeamwork) URL() string { return f.server.URL }

func (f *FakeTeamwork) Close() { f.server.Close() }

func (f *FakeTeamwork) AddProject(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, map[string]any{"id": id, "name": name})
}

// AddTask adds a top-level task with tags to a project.
func (f *FakeTeamwork) AddTask(projectID, id, name string, tags ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tagList := make([]any, 0, len(tags))
	for _, tag := range tags {
		tagList = append(tagList, map[string]any{"name": tag})
	}
	f.tasks[projectID] = append(f.tasks[projectID], map[string]any{
		"id":      id,
		"content": name,
		"tags":    tagList,
	})
}

func (f *FakeTeamwork) AddPerson(projectID, id, first, last string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.people[projectID] = append(f.people[projectID], map[string]any{
		"id":         id,
		"first-name": first,
		"last-name":  last,
	})
}

// FailTask makes every time-entry post for taskID fail.
func (f *FakeTeamwork) FailTask(taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failTask[taskID] = true
}

func (f *FakeTeamwork) Posted() []PostedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PostedEntry(nil), f.posted...)
}

func (f *FakeTeamwork) serve(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/account.json":
		writeJSON(w, http.StatusOK, map[string]any{"account": map[string]any{"name": "Fake"}})
	case r.Method == http.MethodGet && r.URL.Path == "/projects.json":
		f.mu.Lock()
		writeJSON(w, http.StatusOK, map[string]any{"projects": f.projects})
		f.mu.Unlock()
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "projects" && parts[2] == "tasks.json":
		f.mu.Lock()
		tasks := f.tasks[parts[1]]
		if r.URL.Query().Get("page") != "1" {
			tasks = nil
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
		f.mu.Unlock()
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "projects" && parts[2] == "people.json":
		f.mu.Lock()
		writeJSON(w, http.StatusOK, map[string]any{"people": f.people[parts[1]]})
		f.mu.Unlock()
	case r.Method == http.MethodGet && r.URL.Path == "/time_entries.json":
		writeJSON(w, http.StatusOK, map[string]any{"time-entries": []any{}})
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "tasks" && parts[2] == "time_entries.json":
		f.postEntry(w, r, parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakeTeamwork) postEntry(w http.ResponseWriter, r *http.Request, taskID string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTask[taskID] {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"MESSAGE": "task is locked"})
		return
	}
	f.nextID++
	f.posted = append(f.posted, PostedEntry{Path: r.URL.Path, Body: body})
	writeJSON(w, http.StatusCreated, map[string]any{"STATUS": "OK", "timeLogId": fmt.Sprint(f.nextID)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
