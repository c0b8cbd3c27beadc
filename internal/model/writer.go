package model

import (
	"context"

	core "MPSpectra/internal/core/model"
)

// Writer defines a generic interface for persisting the reconstruction of one trace file.
type Writer interface {
	// Name identifies the writer in logs and metrics.
	Name() string

	// Write takes the result of one trace file and persists or ships it.
	Write(ctx context.Context, result *core.TraceResult) error
}

// Closer is implemented by writers that hold a connection to an external system.
type Closer interface {
	Close() error
}
