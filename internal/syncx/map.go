// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package syncx holds typed concurrency helpers.
package syncx

import (
	"cmp"
	"iter"
	"slices"
	"sync"
)

// Map is a type-safe wrapper around sync.Map.
type Map[K cmp.Ordered, V any] struct {
	m sync.Map
}

// Load returns the value stored for key and whether it was present.
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	v, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Store sets the value for key.
func (m *Map[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores value and returns it. loaded reports whether the value was present.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	a, loaded := m.m.LoadOrStore(key, value)
	return a.(V), loaded
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// All returns an iterator over the entries in unspecified order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.m.Range(func(key, value any) bool {
			return yield(key.(K), value.(V))
		})
	}
}

// Sorted returns an iterator over the entries in key order. It reflects the
// keys present when it is called.
func (m *Map[K, V]) Sorted() iter.Seq2[K, V] {
	var keys []K
	for k := range m.All() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return func(yield func(K, V) bool) {
		for _, k := range keys {
			v, ok := m.Load(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}
