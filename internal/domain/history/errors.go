package history

import "errors"

// ErrInvalidInput indicates an invalid batch summary.
var ErrInvalidInput = errors.New("invalid history input")
