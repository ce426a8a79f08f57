package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyFile is returned when the upload has no header row.
var ErrEmptyFile = errors.New("ingest: file has no header row")

// DecodeError reports an upload that is neither UTF-8 nor Latin-1 text.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ingest: cannot decode file as utf-8 or latin-1: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ColumnMappingError reports a logical field ("email" or "tag") that could
// not be resolved to a header column.
type ColumnMappingError struct {
	Field     Field
	Column    string
	Available []string
}

func (e *ColumnMappingError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("ingest: no column mapped for %s (header: %s)",
			e.Field, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("ingest: %s column %q not found (header: %s)",
		e.Field, e.Column, strings.Join(e.Available, ", "))
}
