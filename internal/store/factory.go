// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"sort"
	"sync"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// GraphStoreFactory opens a loadable graph store from its configuration.
type GraphStoreFactory func(cfg *StorageConfig) (LoadableStore, error)

var (
	graphFactories = map[string]GraphStoreFactory{}
	factoriesMu    sync.RWMutex
)

func init() {
	RegisterBackend("memory", func(*StorageConfig) (LoadableStore, error) {
		return NewMemoryGraph(), nil
	})
}

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory GraphStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	graphFactories[name] = factory
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(graphFactories))
	for name := range graphFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// OpenGraphStore opens the graph store selected by cfg. The caller owns the
// returned store and must Close it.
func OpenGraphStore(cfg *StorageConfig) (LoadableStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := graphFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg)
}
