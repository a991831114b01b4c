package table

import (
	"fmt"
	"strings"
)

// FileParseError means an input file could not be read as a table at all.
type FileParseError struct {
	Path string
	Err  error
}

func (e *FileParseError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *FileParseError) Unwrap() error {
	return e.Err
}

// MissingColumnError lists every required logical field that no header
// matched. All misses are reported together.
type MissingColumnError struct {
	Table  string
	Fields []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s table: no matching column for %s", e.Table, strings.Join(e.Fields, ", "))
}

// EmptyDatasetError means no rows survived date parsing or range filtering.
type EmptyDatasetError struct {
	Table  string
	Reason string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s table: %s", e.Table, e.Reason)
}

// DateParseError is a row-level failure; callers drop the row and move on.
type DateParseError struct {
	Row   int
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("row %d: unparsable date %q", e.Row, e.Value)
}
