// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package syncx

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMap(t *testing.T) {
	m := &Map[string, int]{}
	m.Store("b", 2)
	if v, ok := m.Load("b"); !ok || v != 2 {
		t.Errorf("Load(b) = %d, %v", v, ok)
	}
	if v, ok := m.Load("missing"); ok || v != 0 {
		t.Errorf("Load(missing) = %d, %v", v, ok)
	}
	if v, loaded := m.LoadOrStore("b", 3); !loaded || v != 2 {
		t.Errorf("LoadOrStore(b) = %d, %v", v, loaded)
	}
	if v, loaded := m.LoadOrStore("a", 1); loaded || v != 1 {
		t.Errorf("LoadOrStore(a) = %d, %v", v, loaded)
	}
	m.Store("c", 3)
	m.Delete("c")
	var keys []string
	var values []int
	for k, v := range m.Sorted() {
		keys = append(keys, k)
		values = append(values, v)
	}
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("Sorted() keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, values); diff != "" {
		t.Errorf("Sorted() values (-want +got):\n%s", diff)
	}
}

func TestMapConcurrent(t *testing.T) {
	m := &Map[int, int]{}
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Store(i, i*i)
		}()
	}
	wg.Wait()
	n := 0
	for k, v := range m.All() {
		if v != k*k {
			t.Errorf("m[%d] = %d", k, v)
		}
		n++
	}
	if n != 50 {
		t.Errorf("All() yielded %d entries, want 50", n)
	}
}
