package task

// Descriptor is a flattened task eligible for time entries.
type Descriptor struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	ParentID string   `json:"parent_id,omitempty"`
}

// Query selects the eligible tasks of a project.
type Query struct {
	ProjectID        string
	Tag              string
	InheritTags      bool
	IncludeCompleted bool
	Refresh          bool
}

// Listing is the result of Eligible. Warning is set when the remote fetch
// failed and Tasks is empty because of it.
type Listing struct {
	Tasks   []Descriptor `json:"tasks"`
	Warning string       `json:"warning,omitempty"`
}

// Meta carries the sheet identifiers used to boost suggestions.
type Meta struct {
	Client string
	Ticket string
	Ficha  string
}

// Suggestion is the best scoring candidate.
type Suggestion struct {
	Task  Descriptor `json:"task"`
	Score int        `json:"score"`
}
