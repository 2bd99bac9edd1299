package ingest

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is the errors.Is target for UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// UnsupportedFormatError names a format the reader does not know. It is
// returned before any input is consumed.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported input format %q (want csv or gt)", e.Name)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }
