package sheet

import "time"

// Status is the lifecycle state of a service sheet.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// ActivityRecord is one time block read from a ficha.
type ActivityRecord struct {
	ID               string `json:"id"`
	SheetID          string `json:"sheet_id"`
	Position         int    `json:"position"`
	SourceLine       int    `json:"source_line"`
	Date             string `json:"date"`
	ExecutorName     string `json:"executor_name"`
	ExecutorID       string `json:"executor_id"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	TotalDuration    string `json:"total_duration"`
	Billable         bool   `json:"billable"`
	Description      string `json:"description"`
	DescriptionFound bool   `json:"description_found"`
	TaskID           string `json:"task_id,omitempty"`
	TaskName         string `json:"task_name,omitempty"`
}

// ServiceSheet is one uploaded ficha and its records.
type ServiceSheet struct {
	ID          string           `json:"id"`
	Client      string           `json:"client"`
	ProjectID   string           `json:"project_id"`
	Vertical    string           `json:"vertical,omitempty"`
	ServiceType string           `json:"service_type"`
	HourlyRate  float64          `json:"hourly_rate"`
	FichaNumber string           `json:"ficha_number,omitempty"`
	Ticket      string           `json:"ticket,omitempty"`
	SourceName  string           `json:"source_name,omitempty"`
	Strategy    string           `json:"strategy"`
	Status      Status           `json:"status"`
	Records     []ActivityRecord `json:"records"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Record returns the record with id, if present.
func (s *ServiceSheet) Record(id string) (*ActivityRecord, bool) {
	for i := range s.Records {
		if s.Records[i].ID == id {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// SheetSummary is a lightweight representation for listing.
type SheetSummary struct {
	ID          string    `json:"id"`
	Client      string    `json:"client"`
	ProjectID   string    `json:"project_id"`
	FichaNumber string    `json:"ficha_number,omitempty"`
	SourceName  string    `json:"source_name,omitempty"`
	Status      Status    `json:"status"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}
