package ingest

import (
	"errors"
	"fmt"
)

// Error codes carried by SourceError.
const (
	CodeSourceUnreadable  = "SOURCE_UNREADABLE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeSheetNotFound     = "SHEET_NOT_FOUND"
)

// ErrSourceUnreadable matches every SourceError via errors.Is.
var ErrSourceUnreadable = errors.New("source unreadable")

// SourceError reports that a source could not be opened or decoded at all.
// Nothing partial is returned alongside it.
type SourceError struct {
	Code   string
	Source string
	Op     string
	Err    error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Source)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnreadable }

func unreadable(src, op string, err error) error {
	return &SourceError{Code: CodeSourceUnreadable, Source: src, Op: op, Err: err}
}
