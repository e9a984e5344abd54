// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/internal/firestoretest"
)

func TestFirestoreStateStore(t *testing.T) {
	ctx := context.Background()
	client := firestoretest.NewClient(t, "sbomgraph-test")
	s := &FirestoreStateStore{Client: client}
	cp, err := s.Load(ctx, "team/a")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if diff := cmp.Diff(&Checkpoint{Importer: "team/a"}, cp); diff != "" {
		t.Errorf("Load() of an absent checkpoint (-want +got):\n%s", diff)
	}
	want := &Checkpoint{
		Importer:  "team/a",
		Marker:    "abc",
		LastRun:   time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		LastState: "idle",
		Processed: 12,
		Skipped:   1,
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	got, err := s.Load(ctx, "team/a")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
	var all []*Checkpoint
	for cp, err := range s.All(ctx) {
		if err != nil {
			t.Fatalf("All() = %v", err)
		}
		all = append(all, cp)
	}
	if diff := cmp.Diff([]*Checkpoint{want}, all); diff != "" {
		t.Errorf("All() (-want +got):\n%s", diff)
	}
}
