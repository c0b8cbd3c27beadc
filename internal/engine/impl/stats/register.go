package stats

import (
	"context"
	"time"

	"MPSpectra/internal/config"
	"MPSpectra/internal/factory"
	"MPSpectra/internal/model"
)

const connectTimeout = 10 * time.Second

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		return NewGobWriter(dirOr(def.Dir, cfg.Analyzer.StatDir)), nil
	})
	factory.RegisterWriter("csv", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		return NewCSVWriter(dirOr(def.Dir, cfg.Analyzer.StatDir)), nil
	})
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewClickHouseWriter(ctx, def.ClickHouse)
	})
}

func dirOr(dir, def string) string {
	if dir != "" {
		return dir
	}
	return def
}
