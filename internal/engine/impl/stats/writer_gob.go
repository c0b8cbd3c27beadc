// Package stats persists the aggregate connection records of a trace.
package stats

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/model"
)

// File names inside a trace's stat directory.
const (
	ConnectionsFile = "connections.gob"
	SummaryFile     = "summary.json"
)

// SummaryData holds the metadata of a persisted trace, internal to the writer.
type SummaryData struct {
	Pcap              string           `json:"pcap"`
	Connections       int              `json:"connections"`
	Subflows          int              `json:"subflows"`
	Series            int              `json:"series"`
	Bytes             map[string]int64 `json:"bytes"`
	ReinjectedPackets map[string]int64 `json:"reinjected_packets"`
	Diagnostics       []string         `json:"diagnostics,omitempty"`
	Timestamp         string           `json:"timestamp"`
}

// GobWriter writes the connections of a trace to disk in gob format, with a
// JSON summary next to them. It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a writer storing traces under rootPath/<pcap>/.
func NewGobWriter(rootPath string) model.Writer {
	return &GobWriter{rootPath: rootPath}
}

// Name returns the writer type.
func (w *GobWriter) Name() string { return "gob" }

// Write serializes the connections of result.
func (w *GobWriter) Write(_ context.Context, result *core.TraceResult) error {
	// 1. Create the per-trace directory
	dir := filepath.Join(w.rootPath, result.Pcap)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create stat directory: %w", err)
	}

	// 2. Encode the connection graph
	if err := writeGob(filepath.Join(dir, ConnectionsFile), result.Connections); err != nil {
		return err
	}

	// 3. Write the summary
	summary := SummaryData{
		Pcap:              result.Pcap,
		Connections:       len(result.Connections),
		Series:            len(result.Series),
		Bytes:             make(map[string]int64),
		ReinjectedPackets: make(map[string]int64),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}
	for _, conn := range result.Connections {
		summary.Subflows += len(conn.Subflows)
		for d := core.Direction(0); d < core.NumDirections; d++ {
			summary.Bytes[d.Short()] += conn.Bytes[d]
			summary.ReinjectedPackets[d.Short()] += conn.ReinjectedPackets[d]
		}
	}
	for _, d := range result.Diagnostics {
		summary.Diagnostics = append(summary.Diagnostics, d.String())
	}

	summaryFile, err := os.Create(filepath.Join(dir, SummaryFile))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

func writeGob(path string, conns map[string]*core.Connection) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create connections file '%s': %w", path, err)
	}
	if err := gob.NewEncoder(file).Encode(conns); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode connections to gob for file '%s': %w", path, err)
	}
	return file.Close()
}

// ReadConnections decodes a connections file written by GobWriter.
func ReadConnections(path string) (map[string]*core.Connection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var conns map[string]*core.Connection
	if err := gob.NewDecoder(file).Decode(&conns); err != nil {
		return nil, fmt.Errorf("failed to decode connections from '%s': %w", path, err)
	}
	return conns, nil
}

// LoadAll reads every trace persisted under rootPath, keyed by pcap name.
func LoadAll(rootPath string) (map[string]map[string]*core.Connection, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list stat directory: %w", err)
	}
	all := make(map[string]map[string]*core.Connection)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(rootPath, entry.Name(), ConnectionsFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conns, err := ReadConnections(path)
		if err != nil {
			return nil, err
		}
		all[entry.Name()] = conns
	}
	return all, nil
}
