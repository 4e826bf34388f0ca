package headshape

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by any session operation that requires a loaded
// source cloud before one has been loaded.
var ErrNotReady = errors.New("no head-shape cloud loaded")

// ErrInvalidResolution is returned when a requested resolution lies outside
// the configured bounds. Session state is left unchanged.
var ErrInvalidResolution = errors.New("resolution outside configured bounds")

// ErrEmptyExport is returned when persistence is attempted while the visible
// point set is empty.
var ErrEmptyExport = errors.New("refusing to export an empty point set")

// LoadError reports a failed cloud load. The session keeps its prior source
// cloud when a load fails.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading head-shape cloud %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
