package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned when a trace line cannot be parsed into an Event.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMissingMetadata marks a flow or connection referenced by events but absent from the metadata block.
	ErrMissingMetadata = errors.New("missing metadata")
	// ErrEmptySeries marks a flow or direction with fewer than two data points.
	ErrEmptySeries = errors.New("empty series")
	// ErrExternalTool marks a failure signaled by the external tracer.
	ErrExternalTool = errors.New("external tool failure")
)

// Diagnostic is one recovered problem found while processing a trace.
type Diagnostic struct {
	Source string
	Line   int
	Err    error
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", d.Source, d.Line, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Source, d.Err)
}

// Diagnostics accumulates recovered problems instead of aborting.
type Diagnostics []Diagnostic

// Add records a problem.
func (ds *Diagnostics) Add(source string, line int, err error) {
	*ds = append(*ds, Diagnostic{Source: source, Line: line, Err: err})
}

// Count returns how many diagnostics match target.
func (ds Diagnostics) Count(target error) int {
	n := 0
	for _, d := range ds {
		if errors.Is(d.Err, target) {
			n++
		}
	}
	return n
}
