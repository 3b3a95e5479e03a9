package sheet

// ListOptions provides filtering options for listing sheets.
type ListOptions struct {
	ProjectID string
	Status    Status
	Limit     int
	Offset    int
}

// Defaults fill header fields the document does not carry.
type Defaults struct {
	ServiceType string
	Vertical    string
	HourlyRate  float64
}
