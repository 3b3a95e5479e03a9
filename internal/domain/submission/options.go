package submission

// Options configures the submission service.
type Options struct {
	RequireConsultant bool
	Tag               string
	InheritTags       bool
	ReportDir         string // empty keeps reports in memory only
}

// Request selects the records of a sheet to post. Empty RecordIDs selects
// every record in sheet order; otherwise RecordIDs order is kept.
type Request struct {
	SheetID        string
	RecordIDs      []string
	ProjectID      string
	ProjectName    string
	ConsultantName string
	ConsultantID   string
	DryRun         bool
	SkipDuplicates bool
	SuggestTasks   bool
	Extras         map[string]any
}
