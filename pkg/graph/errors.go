package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is the errors.Is target for every FormatError.
	ErrFormat = errors.New("format error")

	// ErrFrozen is returned when a triple is added after the graph was built.
	ErrFrozen = errors.New("graph is frozen")

	// ErrUnknownDirection is returned by ParseDirection.
	ErrUnknownDirection = errors.New("unknown direction")
)

// FormatError reports a malformed ingestion triple.
type FormatError struct {
	Line  int    // 1-based source line, 0 when unknown
	Field string // from, to, weight or "" for the whole record
	Msg   string
	Err   error // underlying parse error, if any
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}
	msg := ErrFormat.Error()
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d", msg, e.Line)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}
