// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package store defines the transactional storage contract the graph is
// persisted through: bulk insert that ignores unique-key conflicts, and
// filtered, ordered, paginated reads.
package store

import (
	"context"

	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/pkg/errors"
)

// ColumnType is the storage class of a column.
type ColumnType int

const (
	// UUID holds a uuid.UUID.
	UUID ColumnType = iota
	// String is a bounded, indexable string.
	String
	// Text is an unbounded string. Text columns are never part of a key.
	Text
	// Time holds a time.Time.
	Time
	// Int holds an int64.
	Int
)

// Column describes a single column of a Table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// ForeignKey declares that Columns reference the unique key of Table.
type ForeignKey struct {
	Columns []string
	Table   string
	// Cascade deletes the referencing row with the referenced one.
	Cascade bool
}

// Table describes a relation: its columns, unique key and foreign keys.
type Table struct {
	Name        string
	Columns     []Column
	Key         []string
	ForeignKeys []ForeignKey
	// New allocates an empty row of this table.
	New func() Row
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row is one record of a Table.
type Row interface {
	Table() *Table
	// Values returns the column values in declaration order.
	Values() []any
	// Fields returns pointers to the column fields in declaration order.
	Fields() []any
}

// Op is a condition operator.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpIsNull
)

// Cond is a single column predicate. Conditions of a Query are ANDed.
type Cond struct {
	Column string
	Op     Op
	Values []any
}

// Eq matches rows whose column equals v.
func Eq(column string, v any) Cond { return Cond{Column: column, Op: OpEq, Values: []any{v}} }

// In matches rows whose column equals any of vs. An empty In matches nothing.
func In(column string, vs ...any) Cond { return Cond{Column: column, Op: OpIn, Values: vs} }

// IsNull matches rows whose column is NULL.
func IsNull(column string) Cond { return Cond{Column: column, Op: OpIsNull} }

// Query selects rows of a single table.
type Query struct {
	Table   *Table
	Where   []Cond
	OrderBy []string
	Offset  int
	// Limit of zero means unbounded.
	Limit int
}

// Reader performs ad-hoc filtered reads.
type Reader interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	// Count returns the number of rows matching q.Where, ignoring ordering and pagination.
	Count(ctx context.Context, q Query) (int64, error)
}

// Tx is an open transaction. Its Begin joins it: the returned Tx shares its
// writes and its Commit and Rollback are left to the outer owner.
type Tx interface {
	Reader
	Beginner
	// Insert writes rows of t. Rows whose unique key already exists are
	// skipped silently; any other failure is returned.
	Insert(ctx context.Context, t *Table, rows []Row) error
	// Delete removes the rows of t matching where and reports how many
	// were removed. Rows referencing them are not touched.
	Delete(ctx context.Context, t *Table, where []Cond) (int64, error)
	Commit() error
	Rollback() error
	// BatchLimit is the maximum number of bound values a single Insert may carry.
	BatchLimit() int
}

// Beginner starts transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Store is a transactional row store.
type Store interface {
	Reader
	Beginner
	Close() error
}

// ErrForeignKey is returned when a row references a missing row.
var ErrForeignKey = errors.New("foreign key violation")

// Join returns a view of tx for a nested unit of work. Writes go to tx;
// Commit and Rollback do nothing, so only the outer owner finishes tx.
func Join(tx Tx) Tx {
	if j, ok := tx.(joined); ok {
		return j
	}
	return joined{tx}
}

type joined struct {
	Tx
}

func (j joined) Begin(context.Context) (Tx, error) { return j, nil }
func (joined) Commit() error                      { return nil }
func (joined) Rollback() error                    { return nil }

// InTx runs fn inside a transaction. When b is itself a Tx, fn joins it and
// the outer owner decides commit or rollback. Otherwise a new transaction is
// committed when fn succeeds and rolled back when it fails.
func InTx(ctx context.Context, b Beginner, fn func(Tx) error) error {
	if tx, ok := b.(Tx); ok {
		return fn(tx)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return storageFailure(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageFailure(err, "committing transaction")
	}
	return nil
}

// storageFailure wraps err, classifying it as a StorageFailure unless the
// backend already classified it.
func storageFailure(err error, msg string) error {
	if sbomerr.KindOf(err) != sbomerr.Unknown {
		return errors.Wrap(err, msg)
	}
	return sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, msg))
}

// SelectAs runs q and converts the rows to R.
func SelectAs[R Row](ctx context.Context, r Reader, q Query) ([]R, error) {
	rows, err := r.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		v, ok := row.(R)
		if !ok {
			return nil, errors.Errorf("row of %s has type %T", q.Table.Name, row)
		}
		out = append(out, v)
	}
	return out, nil
}
