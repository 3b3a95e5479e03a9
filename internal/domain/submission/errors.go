package submission

import "errors"

var (
	// ErrInvalidInput indicates an invalid submission request.
	ErrInvalidInput = errors.New("invalid submission input")
	// ErrMissingConsultant indicates the consultant name is required.
	ErrMissingConsultant = errors.New("consultant name required")
	// ErrMissingProject indicates neither request nor sheet names a project.
	ErrMissingProject = errors.New("project id required")
	// ErrNoRecords indicates nothing was selected for submission.
	ErrNoRecords = errors.New("no records selected")
)
