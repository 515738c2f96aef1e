package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates a fetch failed or answered with a non-success status.
	ErrNetwork = errors.New("network error")
	// ErrParse indicates a payload was not valid JSON or lacked required fields.
	ErrParse = errors.New("parse error")
	// ErrNotFound indicates no candidate data file was found at any discovery tier.
	ErrNotFound = errors.New("no data files found")
	// ErrDateParse indicates a record event date could not be parsed.
	ErrDateParse = errors.New("unparsable event date")
)

// LoadError reports a failed dataset or index load for a specific file.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
