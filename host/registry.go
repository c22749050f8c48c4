// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package host

import (
	"errors"
	"sort"
	"sync"
)

// Factory creates a new Host with the given options.
type Factory func(opts Options) (Host, error)

// RegistryEntry represents a registered host.
type RegistryEntry struct {
	// Name is the unique identifier, e.g. "headless".
	Name string

	// Priority determines selection order (higher = preferred).
	Priority int

	// Factory creates host instances.
	Factory Factory

	// Available reports if the host can be opened on this system.
	Available func() bool
}

var globalRegistry = &Registry{}

// Registry manages named host factories.
//
// Example registration:
//
//	func init() {
//	    host.Register("vulkan", 100, vulkanFactory, vulkanAvailable)
//	}
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and New.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a host to the global registry. If available is nil the host
// is assumed always available. Registering an existing name replaces it.
func Register(name string, priority int, factory Factory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a host from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered host names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// New opens the best available host.
func New(opts Options) (Host, error) {
	return globalRegistry.New(opts)
}

// NewByName opens a specific named host.
func NewByName(name string, opts Options) (Host, error) {
	return globalRegistry.NewByName(name, opts)
}

// Register adds a host to this registry.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a host from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered host names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Get returns a copy of the entry for name.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// New opens the first available host that opens successfully, in priority
// order. The last failure is returned if none does.
func (r *Registry) New(opts Options) (Host, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoHostAvailable
	}

	var lastErr error
	for _, name := range available {
		h, err := r.NewByName(name, opts)
		if err == nil {
			return h, nil
		}
		slogger().Debug("host failed to open", "name", name, "error", err)
		lastErr = err
	}
	return nil, lastErr
}

// NewByName opens the named host.
func (r *Registry) NewByName(name string, opts Options) (Host, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &UnavailableError{Name: name}
	}
	return entry.Factory(opts)
}

// sortedNames returns names sorted by priority (highest first), then name.
// Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoHostAvailable is returned when no host is registered or available.
var ErrNoHostAvailable = errors.New("host: no host available")

// NotFoundError indicates a named host is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "host: not found: " + e.Name
}

// UnavailableError indicates a host is registered but cannot be opened here.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return "host: unavailable: " + e.Name
}

func init() {
	Register("headless", 10, func(opts Options) (Host, error) {
		g, err := NewHeadless(opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	}, nil)
}
