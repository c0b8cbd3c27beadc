package factory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"MPSpectra/internal/config"
	"MPSpectra/internal/model"
)

// WriterFactory creates a writer from its definition. cfg is the whole
// configuration, for writers that need shared settings such as output dirs.
type WriterFactory func(def config.WriterDef, cfg *config.Config) (model.Writer, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]WriterFactory)
)

// RegisterWriter registers a writer type with its factory. It panics when
// the name is taken, since registration happens from init functions.
func RegisterWriter(name string, factory WriterFactory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered returns the registered writer types in lexical order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds every enabled writer of cfg, in config order.
func Create(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer
	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		slog.Info("creating writer", "type", def.Type)

		mu.RLock()
		factory, ok := registry[def.Type]
		mu.RUnlock()
		if !ok {
			closeAll(writers)
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		w, err := factory(def, cfg)
		if err != nil {
			closeAll(writers)
			return nil, fmt.Errorf("error creating writer '%s': %w", def.Type, err)
		}
		writers = append(writers, w)
	}
	return writers, nil
}

// CloseAll closes the writers holding external connections.
func CloseAll(writers []model.Writer) {
	closeAll(writers)
}

func closeAll(writers []model.Writer) {
	for _, w := range writers {
		if c, ok := w.(model.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close writer", "writer", w.Name(), "error", err)
			}
		}
	}
}
