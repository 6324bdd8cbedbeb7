// Package registry keeps ordered lists of named providers per key.
//
// It backs both the currency namespace registry and the exchange rate type
// registry. Entries are only ever added: a provider found once stays
// registered for the process lifetime.
package registry

import (
	"slices"
	"sync"
)

// Entry is a named value registered under a key.
type Entry[T any] struct {
	Name  string
	Value T
}

// Registry is a generic, thread-safe registry of ordered provider lists.
type Registry[T any] struct {
	entries map[string][]Entry[T]
	mu      sync.RWMutex
}

// New creates a new empty registry
func New[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string][]Entry[T]),
	}
}

// Register appends value under key. A second registration of the same name
// under the same key is ignored and reported as false.
func (r *Registry[T]) Register(key, name string, value T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(key, name, value)
}

func (r *Registry[T]) register(key, name string, value T) bool {
	for _, e := range r.entries[key] {
		if e.Name == name {
			return false
		}
	}
	r.entries[key] = append(r.entries[key], Entry[T]{Name: name, Value: value})
	return true
}

// Merge registers every unseen entry under key and returns how many were added.
func (r *Registry[T]) Merge(key string, entries []Entry[T]) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, e := range entries {
		if r.register(key, e.Name, e.Value) {
			added++
		}
	}
	return added
}

// Lookup returns the values under key in registration order.
func (r *Registry[T]) Lookup(key string) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[key]
	values := make([]T, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values
}

// Names returns the entry names under key in registration order.
func (r *Registry[T]) Names(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries[key]))
	for _, e := range r.entries[key] {
		names = append(names, e.Name)
	}
	return names
}

// Has checks if at least one entry is registered under key
func (r *Registry[T]) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[key]) > 0
}

// Keys returns the registered keys, sorted.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Count returns the total number of entries across all keys
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entries := range r.entries {
		n += len(entries)
	}
	return n
}
