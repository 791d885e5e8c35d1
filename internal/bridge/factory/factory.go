// Package factory creates and caches one bridge per switch, dispatching on
// the switch's back-end config type.
package factory

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pipectl/p4bridge/internal/bridge"
	"github.com/pipectl/p4bridge/internal/bridge/nikss"
	"github.com/pipectl/p4bridge/internal/bridge/shell"
)

// Factory hands out bridges keyed by switch name. Instances should be
// released with Close when no longer needed.
type Factory struct {
	mu    sync.Mutex
	cache map[string]bridge.Bridge
}

func New() *Factory {
	return &Factory{cache: make(map[string]bridge.Bridge)}
}

// Get returns the bridge for sw, creating and caching it on first use.
func (f *Factory) Get(sw bridge.Switch) (bridge.Bridge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.cache[sw.Name]; ok {
		return b, nil
	}
	b, err := CreateFor(sw)
	if err != nil {
		return nil, err
	}
	f.cache[sw.Name] = b
	return b, nil
}

// Close closes every cached bridge and empties the cache. The first error
// is returned, but all bridges are attempted.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for name, b := range f.cache {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.cache, name)
	}
	return firstErr
}

// CreateFor builds a new, uncached bridge for sw. Prefer Factory.Get.
func CreateFor(sw bridge.Switch) (bridge.Bridge, error) {
	log.Debug().Str("switch", sw.Name).Str("backend", backendName(sw.API)).Msg("creating bridge")
	switch cfg := sw.API.(type) {
	case bridge.ShellConfig:
		return shell.Dial(sw.Name, cfg)
	case bridge.NikssConfig:
		return nikss.New(sw.Name, cfg)
	default:
		return nil, fmt.Errorf("%w: switch %s has config type %T", bridge.ErrUnsupportedBackend, sw.Name, sw.API)
	}
}

func backendName(cfg bridge.Config) string {
	if cfg == nil {
		return "none"
	}
	return cfg.Backend()
}
