package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/apontador/internal/config"
	"github.com/rpggio/apontador/internal/document"
	"github.com/rpggio/apontador/internal/domain/history"
	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/rpggio/apontador/internal/teamwork"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to coded errors. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var httpErr *teamwork.HTTPError
	switch {
	case errors.Is(err, sheet.ErrSheetNotFound):
		return &APIError{Code: "SHEET_NOT_FOUND", Message: "sheet not found", RecoveryHint: "Call list_sheets to find the id"}
	case errors.Is(err, sheet.ErrRecordNotFound):
		return &APIError{Code: "RECORD_NOT_FOUND", Message: "activity record not found", RecoveryHint: "Call get_sheet to list record ids"}
	case errors.Is(err, sheet.ErrSheetCompleted), errors.Is(err, sheet.ErrInvalidTransition):
		return &APIError{Code: "SHEET_COMPLETED", Message: "sheet already completed", RecoveryHint: "Extract the document again to start a new sheet"}
	case errors.Is(err, sheet.ErrInvalidInput), errors.Is(err, submission.ErrInvalidInput),
		errors.Is(err, history.ErrInvalidInput), errors.Is(err, teamwork.ErrInvalidEntry):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, document.ErrEmptyDocument):
		return &APIError{Code: "EMPTY_DOCUMENT", Message: "document is empty", RecoveryHint: "Send the file content or its text"}
	case errors.Is(err, submission.ErrMissingConsultant):
		return &APIError{Code: "CONSULTANT_REQUIRED", Message: "consultant name required", RecoveryHint: "Pass consultant_name"}
	case errors.Is(err, submission.ErrMissingProject):
		return &APIError{Code: "PROJECT_REQUIRED", Message: "project id required", RecoveryHint: "Pass project_id or call list_projects"}
	case errors.Is(err, submission.ErrNoRecords):
		return &APIError{Code: "NO_RECORDS", Message: "no records selected"}
	case errors.Is(err, teamwork.ErrNotConfigured), errors.Is(err, config.ErrMissingCredentials):
		return &APIError{Code: "TEAMWORK_NOT_CONFIGURED", Message: "teamwork credentials missing", RecoveryHint: "Set APONTADOR_TEAMWORK_URL and APONTADOR_TEAMWORK_API_KEY"}
	case errors.As(err, &httpErr):
		return &APIError{Code: "TEAMWORK_ERROR", Message: httpErr.Error(), Details: map[string]any{"status": httpErr.Status}}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
