package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DatasetFilters echoes the query used when the dataset was collected.
type DatasetFilters struct {
	Municipality string `json:"municipality" bson:"municipality"`
	StartDate    string `json:"start_date" bson:"start_date"`
}

// Dataset is the content of one published data file.
type Dataset struct {
	Filters DatasetFilters `json:"filters" bson:"filters"`
	Count   int            `json:"count" bson:"count"`
	Records []Occurrence   `json:"records" bson:"records"`
}

// DateRange is the span of parsable event dates. Nil bounds mean unresolved.
type DateRange struct {
	Start *time.Time `json:"startDate"`
	End   *time.Time `json:"endDate"`
}

// Resolved reports whether both bounds are known.
func (r DateRange) Resolved() bool {
	return r.Start != nil && r.End != nil
}

// DecodeDataset parses a data file payload. The records field is mandatory.
func DecodeDataset(payload []byte) (*Dataset, error) {
	var envelope struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode dataset: %v: %w", err, ErrParse)
	}
	if len(envelope.Records) == 0 || bytes.Equal(bytes.TrimSpace(envelope.Records), []byte("null")) {
		return nil, fmt.Errorf("dataset has no records field: %w", ErrParse)
	}

	var ds Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %v: %w", err, ErrParse)
	}
	return &ds, nil
}

// RecordCount returns the declared total, falling back to the number of
// loaded records when the declaration is missing.
func (d *Dataset) RecordCount() int {
	if d == nil {
		return 0
	}
	if d.Count == 0 && len(d.Records) > 0 {
		return len(d.Records)
	}
	return d.Count
}

// DateRange scans event dates. Records without a parsable date are ignored.
func (d *Dataset) DateRange() DateRange {
	var r DateRange
	if d == nil {
		return r
	}
	for _, rec := range d.Records {
		t, err := rec.EventTime()
		if err != nil {
			continue
		}
		if r.Start == nil || t.Before(*r.Start) {
			start := t
			r.Start = &start
		}
		if r.End == nil || t.After(*r.End) {
			end := t
			r.End = &end
		}
	}
	return r
}
