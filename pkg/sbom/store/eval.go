// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// The helpers below evaluate queries against rows held in process. They are
// shared by the backends that do not push predicates down to a query engine.

// Normalize maps a column value to a comparable scalar: nil, string or int64.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case uuid.UUID:
		return x.String()
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(time.RFC3339Nano)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func compareValues(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return cmp.Compare(ai, bi)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Key returns the encoded unique key of row.
func Key(t *Table, row Row) (string, error) {
	return KeyOf(t, t.Key, row.Values())
}

// KeyOf encodes the values of the named columns taken from vals.
func KeyOf(t *Table, cols []string, vals []any) (string, error) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		idx := t.Index(c)
		if idx < 0 {
			return "", errors.Errorf("table %s has no column %q", t.Name, c)
		}
		n := Normalize(vals[idx])
		if n == nil {
			parts[i] = "\x01"
			continue
		}
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, "\x00"), nil
}

// Matches reports whether row satisfies every condition.
func Matches(t *Table, row Row, where []Cond) (bool, error) {
	vals := row.Values()
	for _, c := range where {
		idx := t.Index(c.Column)
		if idx < 0 {
			return false, errors.Errorf("table %s has no column %q", t.Name, c.Column)
		}
		v := Normalize(vals[idx])
		switch c.Op {
		case OpIsNull:
			if v != nil {
				return false, nil
			}
		case OpEq, OpIn:
			if v == nil {
				return false, nil
			}
			found := false
			for _, want := range c.Values {
				if compareValues(v, want) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, errors.Errorf("unsupported operator %d", c.Op)
		}
	}
	return true, nil
}

// Sort orders rows by the named columns, then by unique key for stability.
func Sort(t *Table, rows []Row, orderBy []string) error {
	idxs := make([]int, 0, len(orderBy)+len(t.Key))
	for _, c := range append(slices.Clone(orderBy), t.Key...) {
		idx := t.Index(c)
		if idx < 0 {
			return errors.Errorf("table %s has no column %q", t.Name, c)
		}
		idxs = append(idxs, idx)
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		av, bv := a.Values(), b.Values()
		for _, i := range idxs {
			if c := compareValues(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return 0
	})
	return nil
}

// Paginate applies offset and limit to an ordered slice.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Filter evaluates q against rows: filter, order and paginate.
func Filter(q Query, rows []Row) ([]Row, error) {
	var out []Row
	for _, r := range rows {
		ok, err := Matches(q.Table, r, q.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	if err := Sort(q.Table, out, q.OrderBy); err != nil {
		return nil, err
	}
	return Paginate(out, q.Offset, q.Limit), nil
}

// ForeignKeyValues returns the referenced key for fk, or ok=false when any
// referencing column is NULL.
func ForeignKeyValues(t *Table, fk ForeignKey, row Row) (key string, ok bool, err error) {
	vals := row.Values()
	for _, c := range fk.Columns {
		idx := t.Index(c)
		if idx < 0 {
			return "", false, errors.Errorf("table %s has no column %q", t.Name, c)
		}
		if Normalize(vals[idx]) == nil {
			return "", false, nil
		}
	}
	key, err = KeyOf(t, fk.Columns, vals)
	return key, err == nil, err
}
