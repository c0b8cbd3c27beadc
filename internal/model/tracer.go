package model

import "context"

// Tracer runs the external multipath trace tool on one pcap file.
type Tracer interface {
	// Trace writes the per-connection CSV files into workDir and returns the
	// tool's standard output, which carries the connection listing.
	Trace(ctx context.Context, pcapPath, workDir string) ([]byte, error)
}
