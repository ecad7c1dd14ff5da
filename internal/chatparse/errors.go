package chatparse

import (
	"errors"
	"fmt"
)

// StructuralError is raised when input is structurally invalid for its format:
// bad JSON, missing CSV columns, a ZIP without the expected entry.
type StructuralError struct {
	Format Format
	Msg    string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

func structural(f Format, msg string, err error) *StructuralError {
	return &StructuralError{Format: f, Msg: msg, Err: err}
}

// ParseStats are the line counters carried in a failure payload.
type ParseStats struct {
	TotalLines   int `json:"totalLines"`
	MatchedLines int `json:"matchedLines"`
	IgnoredLines int `json:"ignoredLines"`
}

// FailurePayload is the machine-readable body persisted as parse-report.json.
type FailurePayload struct {
	Error             string        `json:"error"`
	DetectedFormat    Format        `json:"detectedFormat"`
	Reason            string        `json:"reason"`
	ExpectedExamples  []string      `json:"expectedExamples"`
	Stats             ParseStats    `json:"stats"`
	FirstIgnoredLines []IgnoredLine `json:"firstIgnoredLines"`
	Tips              []string      `json:"tips"`
}

// ParseFailedError means the parse ran but produced too little to use.
type ParseFailedError struct {
	Payload FailurePayload
	Report  ParseReport
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("parse failed (%s): %s", e.Payload.DetectedFormat, e.Payload.Reason)
}

// IsParseFailed reports whether err is, or wraps, a *ParseFailedError.
func IsParseFailed(err error) bool {
	var pf *ParseFailedError
	return errors.As(err, &pf)
}

// AsParseFailed extracts a *ParseFailedError from err.
func AsParseFailed(err error) (*ParseFailedError, bool) {
	var pf *ParseFailedError
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
