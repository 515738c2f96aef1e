package models

// Period is a selectable year of data backed by one or more files.
type Period struct {
	Year        string    `json:"year"`
	DisplayName string    `json:"displayName"`
	Files       []string  `json:"files"`
	DateRange   DateRange `json:"dateRange"`
}

// FilteredView is the subset of a dataset currently shown to the user.
type FilteredView struct {
	Facet   string       `json:"facet"`
	Value   string       `json:"value,omitempty"`
	Records []Occurrence `json:"records"`
}

// Count returns the number of visible records.
func (v FilteredView) Count() int { return len(v.Records) }
