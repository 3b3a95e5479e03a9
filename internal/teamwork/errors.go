package teamwork

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned when the client has no base URL or API key.
	ErrNotConfigured = errors.New("teamwork client not configured")
	// ErrMissingTarget is returned when a time entry has neither task nor project.
	ErrMissingTarget = errors.New("time entry needs a task id or project id")
	// ErrInvalidEntry is returned when an entry cannot be turned into a payload.
	ErrInvalidEntry = errors.New("invalid time entry")
)

const bodySnippet = 300

// HTTPError is a non-2xx/3xx response from the remote API.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Attempt is one endpoint/payload combination tried by the poster.
type Attempt struct {
	Endpoint string         `json:"endpoint"`
	Variant  string         `json:"variant"`
	Status   int            `json:"status"` // 0 when the request never got a response
	Payload  map[string]any `json:"payload"`
	Response string         `json:"response"`
}

func (a Attempt) String() string {
	status := "EXC"
	if a.Status != 0 {
		status = fmt.Sprintf("%d", a.Status)
	}
	return fmt.Sprintf("[%s] %s payload=%v resp=%s", status, a.Endpoint, a.Payload, a.Response)
}

// PostError reports that every endpoint/payload combination was rejected.
// Attempts holds the most recent attempts, newest first.
type PostError struct {
	Tried    int
	Attempts []Attempt
}

func (e *PostError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("all %d time entry variants failed; last attempts: %s", e.Tried, strings.Join(parts, " | "))
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > bodySnippet {
		return string(r[:bodySnippet])
	}
	return s
}
