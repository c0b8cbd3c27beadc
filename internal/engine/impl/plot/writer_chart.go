package plot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"MPSpectra/internal/config"
	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/factory"
	"MPSpectra/internal/model"
)

// SequenceDir is the subdirectory of the graph dir holding sequence charts.
const SequenceDir = "tsg_thgpt"

func init() {
	factory.RegisterWriter("chart", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		dir := def.Dir
		if dir == "" {
			dir = cfg.Analyzer.GraphDir
		}
		return NewChartWriter(dir), nil
	})
}

// ChartWriter renders the interesting series of a trace.
type ChartWriter struct {
	graphDir string
}

// NewChartWriter creates a writer storing charts under graphDir.
func NewChartWriter(graphDir string) model.Writer {
	return &ChartWriter{graphDir: graphDir}
}

// Name returns the writer type.
func (w *ChartWriter) Name() string { return "chart" }

// FileName returns the chart base name of a series: the pcap name followed
// by the tracer file name without extension.
func FileName(pcap, source string) string {
	return pcap + "_" + strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
}

// Write renders a sequence chart and an ack chart per interesting series.
func (w *ChartWriter) Write(ctx context.Context, result *core.TraceResult) error {
	dir := filepath.Join(w.graphDir, SequenceDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create graph directory: %w", err)
	}

	var errs []error
	for _, s := range result.Series {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Interesting {
			continue
		}
		base := filepath.Join(dir, FileName(result.Pcap, s.Source))
		if err := writePNG(base+".png", func(buf *bytes.Buffer) error { return RenderSequence(buf, s) }); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Source, err))
		}
		if err := writePNG(base+"_acks.png", func(buf *bytes.Buffer) error { return RenderAcks(buf, s) }); err != nil {
			errs = append(errs, fmt.Errorf("%s acks: %w", s.Source, err))
		}
	}
	return errors.Join(errs...)
}

// writePNG renders into memory first so a failed render leaves no file.
// Charts without data are skipped.
func writePNG(path string, draw func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		if errors.Is(err, ErrNoData) {
			slog.Debug("skipping empty chart", "file", path)
			return nil
		}
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// WriteTimeline renders a per-interface timeline chart to path.
func WriteTimeline(path, title string, timeline map[core.Interface][]core.ReconciledPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return writePNG(path, func(buf *bytes.Buffer) error { return RenderTimeline(buf, title, timeline) })
}
