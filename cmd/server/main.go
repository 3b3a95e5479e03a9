package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/apontador/internal/config"
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/people"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/domain/task"
	"github.com/rpggio/apontador/internal/extract"
	"github.com/rpggio/apontador/internal/mcp"
	"github.com/rpggio/apontador/internal/observability"
	"github.com/rpggio/apontador/internal/sqlite"
	"github.com/rpggio/apontador/internal/teamwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)
	if len(os.Args) > 1 && os.Args[1] == "add-key" {
		if err := addKey(apiKeys, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "add-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Warn("teamwork not configured; remote tools will fail until credentials are set", "error", err)
	}
	client := teamwork.NewClient(teamwork.Options{
		BaseURL:        cfg.Teamwork.BaseURL,
		APIKey:         cfg.Teamwork.APIKey,
		AuthMode:       teamwork.AuthMode(cfg.Teamwork.AuthMode),
		PageSize:       cfg.Teamwork.PageSize,
		FetchTimeout:   cfg.Teamwork.FetchTimeout,
		PeopleTimeout:  cfg.Teamwork.PeopleTimeout,
		PostTimeout:    cfg.Teamwork.PostTimeout,
		DescriptionMax: cfg.Teamwork.DescriptionMax,
		Logger:         logger,
	})

	sheetRepo := sqlite.NewSheetRepository(db)
	entryRepo := sqlite.NewEntryRepository(db)

	sheetSvc := sheet.NewService(sheetRepo, extract.NewExtractor(), sheet.Defaults{
		ServiceType: cfg.Sheet.ServiceType,
		Vertical:    cfg.Sheet.Vertical,
		HourlyRate:  cfg.Sheet.HourlyRate,
	}, logger)
	taskSvc := task.NewService(client, task.NewCache(), task.NewKeywordClassifier(), cfg.Phases.ByServiceType, logger)
	peopleSvc := people.NewService(client, logger)
	historySvc := history.NewService(history.NewFileStore(cfg.History.Path), logger)
	submissionSvc := submission.NewService(sheetSvc, client, taskSvc, entryRepo, historySvc, submission.Options{
		RequireConsultant: cfg.Sheet.RequireConsultant,
		Tag:               cfg.Sheet.Tag,
		InheritTags:       cfg.Sheet.InheritTags,
		ReportDir:         cfg.History.ReportDir,
	}, logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Sheets:     sheetSvc,
			Tasks:      taskSvc,
			People:     peopleSvc,
			Submission: submissionSvc,
			History:    historySvc,
			Remote:     client,
		},
		Resolver:        apiKeys,
		AuthEnabled:     cfg.Auth.Enabled,
		TransportMode:   cfg.Transport.Mode,
		DefaultOperator: cfg.Auth.DefaultOperator,
		DefaultTag:      cfg.Sheet.Tag,
		InheritTags:     cfg.Sheet.InheritTags,
		Phases:          cfg.Phases.Names,
		Logger:          logger,
	})

	// Branch based on transport mode
	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
	} else {
		runHTTPMode(logger, mcpServer, cfg.Server.Host, cfg.Server.Port)
	}
}

func addKey(keys *sqlite.APIKeyRepository, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add-key <operator> <token> [description]")
	}
	description := ""
	if len(args) > 2 {
		description = strings.Join(args[2:], " ")
	}
	return keys.Add(context.Background(), args[1], args[0], description)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	transport := &sdkmcp.StdioTransport{}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, transport); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, mcpServer *sdkmcp.Server, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := http.NewServeMux()
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/", mcpHandler)
	router.Handle("/metrics", observability.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}
	if size <= keepLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
