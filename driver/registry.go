package driver

import (
	"sort"
	"sync"
)

// Factory creates a new loader.
type Factory func() Loader

var (
	registryMu sync.RWMutex
	loaders    = make(map[string]Factory)
)

// Register registers a loader factory with the given name.
// This is typically called from init() functions in loader packages.
// Registering an existing name replaces it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	loaders[name] = factory
}

// Unregister removes a loader from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(loaders, name)
}

// Available returns the sorted names of registered loaders.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(loaders))
	for name := range loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a new loader by name, or nil if none is registered.
func Get(name string) Loader {
	registryMu.RLock()
	factory, ok := loaders[name]
	registryMu.RUnlock()

	if !ok {
		return nil
	}
	return factory()
}

// Default returns the first registered loader in name order, or nil.
func Default() Loader {
	for _, name := range Available() {
		if l := Get(name); l != nil {
			return l
		}
	}
	return nil
}
