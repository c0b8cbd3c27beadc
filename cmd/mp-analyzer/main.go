package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"MPSpectra/internal/config"
	_ "MPSpectra/internal/engine/impl/plot"  // Registers the chart writer
	_ "MPSpectra/internal/engine/impl/stats" // Registers the gob, csv and clickhouse writers
	"MPSpectra/internal/engine/manager"
	"MPSpectra/internal/factory"
	"MPSpectra/internal/logging"
	"MPSpectra/internal/metrics"
	_ "MPSpectra/internal/probe" // Registers the nats writer
	"MPSpectra/internal/tracer"
	"MPSpectra/pkg/pcap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML or TOML config file")
	dir := flag.String("dir", "", "directory holding the captures (overrides input.dir)")
	pattern := flag.String("pattern", "", "only process captures whose name contains this string")
	workers := flag.Int("workers", 0, "number of concurrent captures (overrides analyzer.num_workers)")
	clean := flag.Bool("clean", false, "drop loopback noise from the captures before tracing")
	purge := flag.Bool("purge", false, "remove the prepared capture once processed")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dir != "" {
		cfg.Input.Dir = *dir
	}
	if *pattern != "" {
		cfg.Input.Pattern = *pattern
	}
	if *workers > 0 {
		cfg.Analyzer.NumWorkers = *workers
	}
	cfg.Input.CleanLoopback = cfg.Input.CleanLoopback || *clean
	cfg.Analyzer.Purge = cfg.Analyzer.Purge || *purge

	closeLog, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.Info("configuration loaded", "config", *configPath, "dir", cfg.Input.Dir, "writers", factory.Registered())

	// 2. Initialize writers
	writers, err := factory.Create(cfg)
	if err != nil {
		slog.Error("failed to create writers", "error", err)
		return 1
	}
	defer factory.CloseAll(writers)

	// 3. Discover the captures
	files, skipped, err := pcap.Discover(cfg.Input.Dir, cfg.Input.Pattern, cfg.Input.TraceDir)
	if err != nil {
		slog.Error("failed to list captures", "dir", cfg.Input.Dir, "error", err)
		return 1
	}
	for _, f := range skipped {
		slog.Debug("ignoring file", "path", f)
	}
	if len(files) == 0 {
		slog.Warn("no captures found", "dir", cfg.Input.Dir, "pattern", cfg.Input.Pattern)
		return 0
	}

	// 4. Run until done or interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	mgr := manager.NewManager(cfg, tracer.New(cfg.Analyzer.Tracer.Path, cfg.Analyzer.Tracer.Args), writers, m)
	summary := mgr.Run(ctx, files)

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Error("failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	if ctx.Err() != nil {
		slog.Warn("interrupted", "ok", summary.OK, "failed", summary.Failed)
	}
	if summary.Failed > 0 {
		return 1
	}
	return 0
}
