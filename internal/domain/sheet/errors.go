package sheet

import "errors"

var (
	// ErrSheetNotFound indicates the sheet doesn't exist.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrRecordNotFound indicates the record is not part of the sheet.
	ErrRecordNotFound = errors.New("activity record not found")
	// ErrInvalidTransition indicates an invalid status transition.
	ErrInvalidTransition = errors.New("invalid sheet status transition")
	// ErrSheetCompleted indicates a completed sheet can no longer change.
	ErrSheetCompleted = errors.New("sheet already completed")
	// ErrInvalidInput indicates invalid input for sheet operations.
	ErrInvalidInput = errors.New("invalid sheet input")
)
