package trace

import (
	"context"
	"log/slog"

	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/model"

	"golang.org/x/sync/errgroup"
)

// Dispatch hands result to every writer concurrently. A failing writer does
// not stop the others; onError is called once per failure and may be nil.
// It returns the number of failed writers.
func Dispatch(ctx context.Context, writers []model.Writer, result *core.TraceResult, onError func(writer string, err error)) int {
	failures := make([]bool, len(writers))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range writers {
		i, w := i, w
		g.Go(func() error {
			if err := w.Write(gctx, result); err != nil {
				slog.Error("writer failed", "writer", w.Name(), "pcap", result.Pcap, "error", err)
				failures[i] = true
				if onError != nil {
					onError(w.Name(), err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, failed := range failures {
		if failed {
			n++
		}
	}
	return n
}
