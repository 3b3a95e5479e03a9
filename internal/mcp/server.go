package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/people"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/teamwork"
)

// SheetService defines sheet operations needed by MCP.
type SheetService interface {
	Ingest(ctx context.Context, req sheet.IngestRequest) (*sheet.IngestResult, error)
	Get(ctx context.Context, id string) (*sheet.ServiceSheet, error)
	List(ctx context.Context, opts sheet.ListOptions) ([]sheet.SheetSummary, error)
	AssignTask(ctx context.Context, sheetID, recordID string, t sheet.TaskRef) (*sheet.ActivityRecord, error)
	AssignExecutor(ctx context.Context, sheetID, recordID, executorID string) (*sheet.ActivityRecord, error)
	UpdateDescription(ctx context.Context, sheetID, recordID, description string) (*sheet.ActivityRecord, error)
}

// TaskService defines task operations needed by MCP.
type TaskService interface {
	Eligible(ctx context.Context, q task.Query) task.Listing
	Suggest(ctx context.Context, req task.SuggestRequest) task.SuggestResult
}

// PeopleService defines people operations needed by MCP.
type PeopleService interface {
	List(ctx context.Context, projectID string) people.Roster
}

// SubmissionService defines batch posting operations needed by MCP.
type SubmissionService interface {
	Submit(ctx context.Context, req submission.Request) (*submission.Result, error)
	PostedEntries(ctx context.Context, sheetID string) ([]submission.PostedEntry, error)
}

// HistoryService defines history operations needed by MCP.
type HistoryService interface {
	Query(ctx context.Context, f history.Filter) (history.Report, error)
	Clear(ctx context.Context) error
}

// Remote defines the direct Teamwork reads exposed as tools.
type Remote interface {
	TestConnection(ctx context.Context) (teamwork.Account, error)
	Projects(ctx context.Context) ([]teamwork.Project, error)
	TimeEntries(ctx context.Context, taskID, date string) ([]teamwork.TimeEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Sheets     SheetService
	Tasks      TaskService
	People     PeopleService
	Submission SubmissionService
	History    HistoryService
	Remote     Remote
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      OperatorResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// DefaultOperator names the consultant when auth is off.
	DefaultOperator string
	DefaultTag      string
	InheritTags     bool
	Phases          []string // ordered project phases offered to suggest_task
	Logger          *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "apontador",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local use only; auth applies to HTTP when enabled.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DefaultOperator))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{
		svc:         cfg.Services,
		defaultTag:  cfg.DefaultTag,
		inheritTags: cfg.InheritTags,
		phases:      cfg.Phases,
		localFiles:  cfg.TransportMode == "stdio",
		logger:      cfg.Logger,
	})

	return server
}
