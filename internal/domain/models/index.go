package models

import (
	"strings"
	"time"
)

var indexTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// FileIndex is the published list of available data files.
type FileIndex struct {
	Files       []string `json:"files"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Count       int      `json:"count,omitempty"`
}

// UpdatedAt parses LastUpdated. The index generator may omit the zone offset.
func (i FileIndex) UpdatedAt() (time.Time, bool) {
	value := strings.TrimSpace(i.LastUpdated)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range indexTimestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
