package sheet

import "strings"

// ValidateTransition checks a requested status change. Sheets only move
// forward from in progress to completed.
func ValidateTransition(from, to Status) error {
	if from == StatusInProgress && to == StatusCompleted {
		return nil
	}
	return ErrInvalidTransition
}

// ValidateIngestInput checks that there is something to extract.
func ValidateIngestInput(req IngestRequest) error {
	if len(req.Data) == 0 && strings.TrimSpace(req.Text) == "" {
		return ErrInvalidInput
	}
	return nil
}
