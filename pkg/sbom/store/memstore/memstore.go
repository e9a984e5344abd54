// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package memstore is an in-process store.Store used by tests and the
// "memory:" store URL.
package memstore

import (
	"context"
	"sync"

	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/pkg/errors"
)

// DefaultBatchLimit mirrors the bound-parameter ceiling of the SQL backends.
const DefaultBatchLimit = 65535

type table struct {
	def  *store.Table
	keys map[string]int
	rows []store.Row
}

// Store keeps committed rows in memory. Transactions buffer their writes and
// apply them atomically on Commit under a single lock, which serializes
// commits the way a relational store serializes conflicting transactions.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	// Schema resolves foreign key targets by table name.
	schema map[string]*store.Table
}

// New returns an empty store over the given schema.
func New(schema ...*store.Table) *Store {
	s := &Store{tables: make(map[string]*table), schema: make(map[string]*store.Table)}
	for _, t := range schema {
		s.schema[t.Name] = t
		s.tables[t.Name] = &table{def: t, keys: make(map[string]int)}
	}
	return s
}

var _ store.Store = &Store{}

func (s *Store) table(t *store.Table) (*table, error) {
	tbl, ok := s.tables[t.Name]
	if !ok {
		return nil, errors.Errorf("unknown table %s", t.Name)
	}
	return tbl, nil
}

// Select implements store.Reader over committed rows.
func (s *Store) Select(ctx context.Context, q store.Query) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, err := s.table(q.Table)
	if err != nil {
		return nil, err
	}
	return store.Filter(q, tbl.rows)
}

// Count implements store.Reader over committed rows.
func (s *Store) Count(ctx context.Context, q store.Query) (int64, error) {
	q.Offset, q.Limit, q.OrderBy = 0, 0, nil
	rows, err := s.Select(ctx, q)
	return int64(len(rows)), err
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	return &Tx{s: s, pending: make(map[string]map[string]store.Row), deleted: make(map[string]map[string]bool)}, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Tx is a memstore transaction. Reads see committed rows, minus the ones it
// deleted, plus its own pending rows.
type Tx struct {
	s       *Store
	order   []pendingRow
	pending map[string]map[string]store.Row
	// deleted holds the keys of committed rows removed by the transaction.
	deleted map[string]map[string]bool
	done    bool
}

type pendingRow struct {
	table *store.Table
	key   string
	row   store.Row
}

var _ store.Tx = &Tx{}

// Begin joins tx; see store.Join.
func (tx *Tx) Begin(ctx context.Context) (store.Tx, error) { return store.Join(tx), nil }

// BatchLimit implements store.Tx.
func (tx *Tx) BatchLimit() int { return DefaultBatchLimit }

func (tx *Tx) has(t *store.Table, key string) bool {
	if _, ok := tx.pending[t.Name][key]; ok {
		return true
	}
	if tx.deleted[t.Name][key] {
		return false
	}
	tbl, ok := tx.s.tables[t.Name]
	if !ok {
		return false
	}
	_, ok = tbl.keys[key]
	return ok
}

// Insert implements store.Tx.
func (tx *Tx) Insert(ctx context.Context, t *store.Table, rows []store.Row) error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	if len(rows)*len(t.Columns) > tx.BatchLimit() {
		return sbomerr.Errorf(sbomerr.StorageFailure, "%d rows of %s exceed the batch limit", len(rows), t.Name)
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	if _, err := tx.s.table(t); err != nil {
		return sbomerr.New(sbomerr.StorageFailure, err)
	}
	for _, r := range rows {
		key, err := store.Key(t, r)
		if err != nil {
			return sbomerr.New(sbomerr.StorageFailure, err)
		}
		if tx.has(t, key) {
			continue
		}
		for _, fk := range t.ForeignKeys {
			ref, ok, err := store.ForeignKeyValues(t, fk, r)
			if err != nil {
				return sbomerr.New(sbomerr.StorageFailure, err)
			}
			if !ok {
				continue
			}
			target, known := tx.s.schema[fk.Table]
			if !known || !tx.has(target, ref) {
				return sbomerr.New(sbomerr.StorageFailure, errors.Wrapf(store.ErrForeignKey, "%s%v references missing %s row", t.Name, fk.Columns, fk.Table))
			}
		}
		if tx.pending[t.Name] == nil {
			tx.pending[t.Name] = make(map[string]store.Row)
		}
		tx.pending[t.Name][key] = r
		tx.order = append(tx.order, pendingRow{table: t, key: key, row: r})
	}
	return nil
}

// Select implements store.Reader over committed and pending rows.
func (tx *Tx) Select(ctx context.Context, q store.Query) ([]store.Row, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	tbl, err := tx.s.table(q.Table)
	if err != nil {
		return nil, err
	}
	all := make([]store.Row, 0, len(tbl.rows))
	gone := tx.deleted[q.Table.Name]
	for _, r := range tbl.rows {
		if len(gone) > 0 {
			key, err := store.Key(q.Table, r)
			if err != nil {
				return nil, err
			}
			if gone[key] {
				continue
			}
		}
		all = append(all, r)
	}
	for _, p := range tx.order {
		if p.table.Name == q.Table.Name {
			all = append(all, p.row)
		}
	}
	return store.Filter(q, all)
}

// Count implements store.Reader.
func (tx *Tx) Count(ctx context.Context, q store.Query) (int64, error) {
	q.Offset, q.Limit, q.OrderBy = 0, 0, nil
	rows, err := tx.Select(ctx, q)
	return int64(len(rows)), err
}

// Delete implements store.Tx.
func (tx *Tx) Delete(ctx context.Context, t *store.Table, where []store.Cond) (int64, error) {
	if tx.done {
		return 0, errors.New("transaction already finished")
	}
	rows, err := tx.Select(ctx, store.Query{Table: t, Where: where})
	if err != nil {
		return 0, sbomerr.New(sbomerr.StorageFailure, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	gone := make(map[string]bool, len(rows))
	for _, r := range rows {
		key, err := store.Key(t, r)
		if err != nil {
			return 0, sbomerr.New(sbomerr.StorageFailure, err)
		}
		gone[key] = true
		delete(tx.pending[t.Name], key)
		if tx.deleted[t.Name] == nil {
			tx.deleted[t.Name] = make(map[string]bool)
		}
		tx.deleted[t.Name][key] = true
	}
	kept := tx.order[:0]
	for _, p := range tx.order {
		if p.table.Name != t.Name || !gone[p.key] {
			kept = append(kept, p)
		}
	}
	tx.order = kept
	return int64(len(rows)), nil
}

// Commit applies the deletions and then the pending rows. Rows committed
// concurrently by another transaction since they were buffered are skipped.
func (tx *Tx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for name, gone := range tx.deleted {
		tbl := tx.s.tables[name]
		rows := make([]store.Row, 0, len(tbl.rows))
		keys := make(map[string]int, len(tbl.keys))
		for _, r := range tbl.rows {
			key, err := store.Key(tbl.def, r)
			if err != nil {
				return err
			}
			if gone[key] {
				continue
			}
			keys[key] = len(rows)
			rows = append(rows, r)
		}
		tbl.rows, tbl.keys = rows, keys
	}
	for _, p := range tx.order {
		tbl := tx.s.tables[p.table.Name]
		if _, ok := tbl.keys[p.key]; ok {
			continue
		}
		tbl.keys[p.key] = len(tbl.rows)
		tbl.rows = append(tbl.rows, p.row)
	}
	return nil
}

// Rollback discards the pending rows.
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.order, tx.pending, tx.deleted = nil, nil, nil
	return nil
}
