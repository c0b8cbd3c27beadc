// Package manager runs the per-capture pipeline over a batch of files with a
// fixed pool of workers.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"MPSpectra/internal/config"
	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/engine/trace"
	"MPSpectra/internal/metrics"
	"MPSpectra/internal/model"
	"MPSpectra/pkg/pcap"
)

// Summary counts the outcome of a batch.
type Summary struct {
	OK      int
	Failed  int
	Skipped int
}

// Manager orchestrates the tracer, the reconstruction and the writers.
type Manager struct {
	cfg       *config.Config
	tracer    model.Tracer
	processor *trace.Processor
	writers   []model.Writer
	metrics   *metrics.Metrics

	mu      sync.Mutex
	summary Summary
}

// NewManager creates a new Manager. m may be nil.
func NewManager(cfg *config.Config, tracer model.Tracer, writers []model.Writer, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.New()
	}
	return &Manager{
		cfg:    cfg,
		tracer: tracer,
		processor: trace.NewProcessor(trace.Options{
			MinBytes:     cfg.Analyzer.MinBytes,
			WiFiPrefixes: cfg.Analyzer.WiFiPrefixes,
		}),
		writers: writers,
		metrics: m,
	}
}

// Run processes files and blocks until every worker is done or ctx is
// cancelled. A failing file never stops the batch.
func (m *Manager) Run(ctx context.Context, files []string) Summary {
	queue := NewQueue(files)
	numWorkers := m.cfg.Analyzer.NumWorkers
	if numWorkers > len(files) {
		numWorkers = len(files)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go m.worker(ctx, i, queue, &wg)
	}
	slog.Info("manager started", "workers", numWorkers, "files", len(files))
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	slog.Info("manager finished", "ok", m.summary.OK, "failed", m.summary.Failed, "skipped", m.summary.Skipped)
	return m.summary
}

func (m *Manager) worker(ctx context.Context, id int, queue *Queue, wg *sync.WaitGroup) {
	defer wg.Done()
	for ctx.Err() == nil {
		path, ok := queue.Pop()
		if !ok {
			return
		}
		start := time.Now()
		status := m.handle(ctx, id, path)
		m.metrics.FileDone(status, time.Since(start))
		m.count(status)
	}
}

func (m *Manager) count(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch status {
	case metrics.StatusOK:
		m.summary.OK++
	case metrics.StatusSkipped:
		m.summary.Skipped++
	default:
		m.summary.Failed++
	}
}

// handle runs one capture and converts a panic into a failure.
func (m *Manager) handle(ctx context.Context, worker int, path string) (status string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while processing capture", "worker", worker, "pcap", path, "panic", r)
			status = metrics.StatusFailed
		}
	}()

	if !pcap.IsMPTCP(path) {
		slog.Info("skipping non-multipath capture", "pcap", path)
		return metrics.StatusSkipped
	}
	if err := m.ProcessFile(ctx, path); err != nil {
		slog.Error("failed to process capture", "worker", worker, "pcap", path, "error", err)
		return metrics.StatusFailed
	}
	return metrics.StatusOK
}

// ProcessFile takes one capture through preparation, tracing, reconstruction
// and every writer.
func (m *Manager) ProcessFile(ctx context.Context, path string) error {
	name := pcap.BaseName(path)
	prepared, err := pcap.Prepare(path, m.cfg.Input.TraceDir)
	if err != nil {
		return err
	}
	if m.cfg.Analyzer.Purge {
		defer func() {
			if prepared == path {
				return
			}
			if err := os.Remove(prepared); err != nil {
				slog.Warn("failed to purge prepared capture", "pcap", name, "path", prepared, "error", err)
			}
		}()
	}

	if m.cfg.Input.CleanLoopback {
		kept, dropped, err := pcap.CleanLoopback(prepared)
		if err != nil {
			return err
		}
		slog.Debug("cleaned loopback traffic", "pcap", name, "kept", kept, "dropped", dropped)
	}

	workDir, err := os.MkdirTemp("", "mpspectra-"+name+"-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	out, err := m.tracer.Trace(ctx, prepared, workDir)
	if err != nil {
		return err
	}

	result, err := m.processor.Process(name, out, workDir)
	if err != nil {
		return err
	}
	m.metrics.Result(result)
	for _, d := range result.Diagnostics {
		slog.Debug("diagnostic", "pcap", name, "detail", d.String())
	}
	logResult(result)

	failed := trace.Dispatch(ctx, m.writers, result, func(writer string, _ error) {
		m.metrics.WriterFailed(writer)
	})
	if failed > 0 {
		slog.Warn("some writers failed", "pcap", name, "failed", failed, "writers", len(m.writers))
	}
	return nil
}

func logResult(result *core.TraceResult) {
	slog.Info("capture reconstructed",
		"pcap", result.Pcap,
		"connections", len(result.Connections),
		"series", len(result.Series),
		"diagnostics", len(result.Diagnostics))
}
