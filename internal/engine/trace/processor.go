// Package trace rebuilds the connections of one capture from the files the
// trace tool left in its working directory.
package trace

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/engine/aggregator"
	"MPSpectra/internal/engine/classify"
	"MPSpectra/internal/engine/protocol"
	"MPSpectra/internal/engine/reconcile"
)

// Options tunes the reconstruction.
type Options struct {
	// MinBytes is the per-direction byte count below which a direction is skipped.
	MinBytes     int64
	WiFiPrefixes []string
}

// Processor turns tracer output into a TraceResult.
type Processor struct {
	opts Options
}

// NewProcessor returns a Processor with the given options.
func NewProcessor(opts Options) *Processor {
	if len(opts.WiFiPrefixes) == 0 {
		opts.WiFiPrefixes = classify.DefaultWiFiPrefixes
	}
	return &Processor{opts: opts}
}

type seqFile struct {
	name   string
	connID string
	dir    core.Direction
	events []core.Event
}

// Process reads the connection listing in metadata and the CSV files in
// workDir. Per-record and per-flow problems end up in the result's
// diagnostics; only an unreadable workDir is an error.
func (p *Processor) Process(pcapName string, metadata []byte, workDir string) (*core.TraceResult, error) {
	conns, diags, err := protocol.ParseMetadata(bytes.NewReader(metadata))
	if err != nil {
		return nil, err
	}
	result := &core.TraceResult{Pcap: pcapName, Connections: conns, Diagnostics: diags}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracer output: %w", err)
	}

	// 1. Stats files and event streams, without reconciling anything yet.
	var files []*seqFile
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
		case protocol.IsStatsFile(name):
			p.readStats(result, filepath.Join(workDir, name))
		case protocol.IsSeqFile(name):
			if f := p.readSeq(result, filepath.Join(workDir, name)); f != nil {
				files = append(files, f)
			}
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	// 2. Global start reference of every connection across both directions.
	streams := make(map[string][][]core.Event)
	for _, f := range files {
		streams[f.connID] = append(streams[f.connID], f.events)
	}
	for id, s := range streams {
		if start, ok := reconcile.GlobalStart(s...); ok {
			result.Connections[id].Start = start
		}
	}

	// 3. Labels, then per-direction reconciliation.
	interesting := make(map[string]bool, len(result.Connections))
	for id, conn := range result.Connections {
		interesting[id] = classify.Label(conn, p.opts.WiFiPrefixes)
	}
	for _, f := range files {
		conn := result.Connections[f.connID]
		if len(f.events) < 2 {
			result.Diagnostics.Add(f.name, 0, fmt.Errorf("%w: %d records", core.ErrEmptySeries, len(f.events)))
			continue
		}
		if conn.Bytes[f.dir] < p.opts.MinBytes {
			slog.Debug("direction below byte threshold", "pcap", pcapName, "file", f.name, "bytes", conn.Bytes[f.dir])
			continue
		}

		res := reconcile.Run(conn, f.dir, f.events, conn.Start, f.name)
		result.Diagnostics = append(result.Diagnostics, res.Diagnostics...)
		// Placeholder subflows created by Run still need a label.
		interesting[f.connID] = classify.Label(conn, p.opts.WiFiPrefixes)
		result.Series = append(result.Series, aggregator.Build(conn, res, f.name, interesting[f.connID]))
	}

	for _, conn := range result.Connections {
		conn.Finalize()
	}
	return result, nil
}

func (p *Processor) connection(result *core.TraceResult, source, id string) *core.Connection {
	if conn, ok := result.Connections[id]; ok {
		return conn
	}
	result.Diagnostics.Add(source, 0, fmt.Errorf("%w: connection %s", core.ErrMissingMetadata, id))
	conn := core.NewConnection(id)
	result.Connections[id] = conn
	return conn
}

func (p *Processor) readStats(result *core.TraceResult, path string) {
	name := filepath.Base(path)
	id, err := protocol.ConnectionID(name)
	if err != nil {
		result.Diagnostics.Add(name, 0, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		result.Diagnostics.Add(name, 0, err)
		return
	}
	defer f.Close()

	st, err := protocol.ParseStats(f)
	if err != nil {
		result.Diagnostics.Add(name, 0, err)
		return
	}
	st.Apply(p.connection(result, name, id))
}

func (p *Processor) readSeq(result *core.TraceResult, path string) *seqFile {
	name := filepath.Base(path)
	id, err := protocol.ConnectionID(name)
	if err != nil {
		result.Diagnostics.Add(name, 0, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err))
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		result.Diagnostics.Add(name, 0, err)
		return nil
	}
	defer f.Close()

	events, diags, err := protocol.ParseEvents(f, name)
	result.Diagnostics = append(result.Diagnostics, diags...)
	if err != nil {
		result.Diagnostics.Add(name, 0, err)
		return nil
	}
	p.connection(result, name, id)
	return &seqFile{name: name, connID: id, dir: protocol.DirectionOf(name), events: events}
}
