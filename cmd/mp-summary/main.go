package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"MPSpectra/internal/config"
	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/engine/aggregator"
	"MPSpectra/internal/engine/impl/plot"
	"MPSpectra/internal/engine/impl/stats"
	"MPSpectra/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML or TOML config file")
	out := flag.String("out", "", "directory for the exported tables (defaults to analyzer.stat_dir)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	closeLog, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	if *out == "" {
		*out = cfg.Analyzer.StatDir
	}

	all, err := stats.LoadAll(cfg.Analyzer.StatDir)
	if err != nil {
		slog.Error("failed to load records", "dir", cfg.Analyzer.StatDir, "error", err)
		return 1
	}

	pcaps := make([]string, 0, len(all))
	for name := range all {
		pcaps = append(pcaps, name)
	}
	sort.Strings(pcaps)

	failed := false
	for _, name := range pcaps {
		conns := all[name]
		if err := stats.ExportCSV(*out, name, conns); err != nil {
			slog.Error("failed to export tables", "pcap", name, "error", err)
			failed = true
			continue
		}

		list := make([]*core.Connection, 0, len(conns))
		for _, c := range conns {
			list = append(list, c)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		timeline := aggregator.InterfaceTimeline(list, core.ServerToClient)
		path := filepath.Join(cfg.Analyzer.GraphDir, "interfaces", name+"_s2c.png")
		if err := plot.WriteTimeline(path, name+" "+core.ServerToClient.Short(), timeline); err != nil {
			slog.Warn("no interface timeline", "pcap", name, "error", err)
		}
		slog.Info("summary exported", "pcap", name, "connections", len(conns))
	}
	if failed {
		return 1
	}
	return 0
}
