// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package badgerstore implements store.Store on an embedded badger database.
//
// Rows are JSON values under "t/<table>/<encoded unique key>". Existence and
// foreign key checks read through a separate read-only view so that a
// transaction's read set stays empty: concurrent commits of the same shared
// identity rows then never abort each other, and the later write of an
// identical row is harmless.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/pkg/errors"
)

// BatchLimit bounds the values written by one Insert call.
const BatchLimit = 32768

// DefaultMemTableSize is used when Config.MemTableSize is zero. Badger caps
// a transaction at 15% of the memtable, so this fits documents of a few
// tens of megabytes in one commit.
const DefaultMemTableSize = 256 << 20

// Config controls how the database is opened.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path     string
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// MemTableSize bounds the size of one transaction, see DefaultMemTableSize.
	MemTableSize int64
	// Logger receives badger's internal logging. Nil disables it.
	Logger *log.Logger
}

type badgerLogger struct {
	l *log.Logger
}

func (b *badgerLogger) Errorf(format string, args ...any)   { b.l.Printf("ERROR: "+format, args...) }
func (b *badgerLogger) Warningf(format string, args ...any) { b.l.Printf("WARNING: "+format, args...) }
func (b *badgerLogger) Infof(format string, args ...any)    { b.l.Printf("INFO: "+format, args...) }
func (b *badgerLogger) Debugf(format string, args ...any)   {}

// Store is a badger backed store.Store.
type Store struct {
	db     *badger.DB
	schema map[string]*store.Table
}

var _ store.Store = &Store{}

// Open opens or creates the database described by cfg.
func Open(cfg Config, schema ...*store.Table) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	memTable := cfg.MemTableSize
	if memTable == 0 {
		memTable = DefaultMemTableSize
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithMemTableSize(memTable)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{l: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger database")
	}
	s := &Store{db: db, schema: make(map[string]*store.Table)}
	for _, t := range schema {
		s.schema[t.Name] = t
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func prefix(t *store.Table) []byte {
	return []byte("t/" + t.Name + "/")
}

func rowKey(t *store.Table, key string) []byte {
	return append(prefix(t), key...)
}

func (s *Store) exists(k []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) scan(ctx context.Context, t *store.Table) ([]store.Row, error) {
	if _, ok := s.schema[t.Name]; !ok {
		return nil, errors.Errorf("unknown table %s", t.Name)
	}
	var rows []store.Row
	err := s.db.View(func(txn *badger.Txn) error {
		p := prefix(t)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: p, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := t.New()
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, row)
			})
			if err != nil {
				return errors.Wrapf(err, "decoding %s", bytes.TrimPrefix(it.Item().Key(), p))
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// Select implements store.Reader.
func (s *Store) Select(ctx context.Context, q store.Query) ([]store.Row, error) {
	rows, err := s.scan(ctx, q.Table)
	if err != nil {
		return nil, err
	}
	return store.Filter(q, rows)
}

// Count implements store.Reader.
func (s *Store) Count(ctx context.Context, q store.Query) (int64, error) {
	q.Offset, q.Limit, q.OrderBy = 0, 0, nil
	rows, err := s.Select(ctx, q)
	return int64(len(rows)), err
}

// Begin starts a read-write transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{s: s, txn: s.db.NewTransaction(true), written: make(map[string][]store.Row), known: make(map[string]bool), deleted: make(map[string]bool)}, nil
}

// Tx is a badger read-write transaction.
type Tx struct {
	s       *Store
	txn     *badger.Txn
	written map[string][]store.Row
	known   map[string]bool
	// deleted holds the committed row keys removed by tx.
	deleted map[string]bool
	done    bool
}

var _ store.Tx = &Tx{}

// Begin joins tx; see store.Join.
func (tx *Tx) Begin(ctx context.Context) (store.Tx, error) { return store.Join(tx), nil }

// BatchLimit implements store.Tx.
func (tx *Tx) BatchLimit() int { return BatchLimit }

func (tx *Tx) has(k []byte) (bool, error) {
	if tx.known[string(k)] {
		return true, nil
	}
	if tx.deleted[string(k)] {
		return false, nil
	}
	return tx.s.exists(k)
}

// Insert implements store.Tx.
func (tx *Tx) Insert(ctx context.Context, t *store.Table, rows []store.Row) error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	if _, ok := tx.s.schema[t.Name]; !ok {
		return sbomerr.New(sbomerr.StorageFailure, errors.Errorf("unknown table %s", t.Name))
	}
	for _, r := range rows {
		key, err := store.Key(t, r)
		if err != nil {
			return sbomerr.New(sbomerr.StorageFailure, err)
		}
		k := rowKey(t, key)
		found, err := tx.has(k)
		if err != nil {
			return sbomerr.New(sbomerr.StorageFailure, err)
		}
		if found {
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
			if !known {
				return sbomerr.New(sbomerr.StorageFailure, errors.Errorf("unknown table %s", fk.Table))
			}
			present, err := tx.has(rowKey(target, ref))
			if err != nil {
				return sbomerr.New(sbomerr.StorageFailure, err)
			}
			if !present {
				return sbomerr.New(sbomerr.StorageFailure, errors.Wrapf(store.ErrForeignKey, "%s%v references missing %s row", t.Name, fk.Columns, fk.Table))
			}
		}
		v, err := json.Marshal(r)
		if err != nil {
			return sbomerr.New(sbomerr.StorageFailure, errors.Wrapf(err, "encoding %s row", t.Name))
		}
		if err := tx.txn.Set(k, v); err != nil {
			return writeError(err, "writing %s row", t.Name)
		}
		tx.known[string(k)] = true
		tx.written[t.Name] = append(tx.written[t.Name], r)
	}
	return nil
}

// Select implements store.Reader over committed rows plus rows written by tx.
func (tx *Tx) Select(ctx context.Context, q store.Query) ([]store.Row, error) {
	rows, err := tx.s.scan(ctx, q.Table)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	live := rows[:0]
	for _, r := range rows {
		k, err := store.Key(q.Table, r)
		if err != nil {
			return nil, err
		}
		if tx.deleted[string(rowKey(q.Table, k))] {
			continue
		}
		seen[k] = true
		live = append(live, r)
	}
	rows = live
	for _, r := range tx.written[q.Table.Name] {
		k, err := store.Key(q.Table, r)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			rows = append(rows, r)
		}
	}
	return store.Filter(q, rows)
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
	gone := make(map[string]bool, len(rows))
	for _, r := range rows {
		key, err := store.Key(t, r)
		if err != nil {
			return 0, sbomerr.New(sbomerr.StorageFailure, err)
		}
		k := rowKey(t, key)
		if err := tx.txn.Delete(k); err != nil {
			return 0, writeError(err, "deleting %s row", t.Name)
		}
		delete(tx.known, string(k))
		tx.deleted[string(k)] = true
		gone[key] = true
	}
	if len(gone) > 0 {
		kept := tx.written[t.Name][:0]
		for _, r := range tx.written[t.Name] {
			if key, err := store.Key(t, r); err == nil && !gone[key] {
				kept = append(kept, r)
			}
		}
		tx.written[t.Name] = kept
	}
	return int64(len(rows)), nil
}

// writeError classifies a failed write. A transaction outgrowing badger's
// batch limit is a document too large for this store, not a broken store.
func writeError(err error, format string, args ...any) error {
	kind := sbomerr.StorageFailure
	if errors.Is(err, badger.ErrTxnTooBig) {
		kind = sbomerr.SizeExceeded
	}
	return sbomerr.New(kind, errors.Wrapf(err, format, args...))
}

// Commit implements store.Tx.
func (tx *Tx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true
	defer tx.txn.Discard()
	return tx.txn.Commit()
}

// Rollback implements store.Tx.
func (tx *Tx) Rollback() error {
	if !tx.done {
		tx.done = true
		tx.txn.Discard()
	}
	return nil
}
