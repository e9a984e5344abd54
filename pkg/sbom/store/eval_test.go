// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestNormalize(t *testing.T) {
	s := "x"
	var nilStr *string
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	for _, tc := range []struct {
		in   any
		want any
	}{
		{nil, nil},
		{"x", "x"},
		{&s, "x"},
		{nilStr, nil},
		{id, "00000000-0000-0000-0000-000000000001"},
		{7, int64(7)},
		{ts, "2024-01-02T02:04:05Z"},
	} {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	for _, tc := range []struct {
		offset, limit int
		want          []int
	}{
		{0, 0, []int{1, 2, 3, 4, 5}},
		{1, 2, []int{2, 3}},
		{3, 10, []int{4, 5}},
		{5, 1, nil},
	} {
		got := Paginate(items, tc.offset, tc.limit)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Paginate(%d, %d) diff (-want +got):\n%s", tc.offset, tc.limit, diff)
		}
	}
}

func TestCompareValues(t *testing.T) {
	if compareValues(int64(2), int64(10)) >= 0 {
		t.Error("2 should sort before 10")
	}
	if compareValues(nil, "a") >= 0 {
		t.Error("NULL should sort first")
	}
	if compareValues("b", "a") <= 0 {
		t.Error("b should sort after a")
	}
}
