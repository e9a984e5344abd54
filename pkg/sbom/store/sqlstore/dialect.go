// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"fmt"
	"strings"

	"github.com/google/oss-sbomgraph/pkg/sbom/store"
)

// Dialect renders the statements whose syntax differs between engines.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string
	Quote(ident string) string
	// InsertIgnore renders a multi-row insert that skips rows whose unique key exists.
	InsertIgnore(t *store.Table, rows int) string
	// Page renders the pagination suffix of an ordered SELECT.
	Page(offset, limit int) string
	ColumnType(c store.Column) string
	CreateTable(t *store.Table, schema map[string]*store.Table) string
	// BatchLimit is the maximum number of parameters of one statement.
	BatchLimit() int
	// MaxRows is the maximum number of rows of one VALUES list, or zero.
	MaxRows() int
}

func quoteAll(d Dialect, names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = d.Quote(n)
	}
	return strings.Join(q, ", ")
}

func valuesList(d Dialect, cols, rows int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func foreignKeyClause(d Dialect, fk store.ForeignKey, schema map[string]*store.Table, cascade bool) string {
	target := schema[fk.Table]
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", quoteAll(d, fk.Columns), d.Quote(fk.Table), quoteAll(d, target.Key))
	if cascade {
		clause += " ON DELETE CASCADE"
	}
	return clause
}

func columnDefs(d Dialect, t *store.Table) []string {
	var defs []string
	for _, c := range t.Columns {
		def := d.Quote(c.Name) + " " + d.ColumnType(c)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return defs
}

// MySQL targets MySQL 8 with InnoDB.
type MySQL struct{}

func (MySQL) Name() string           { return "mysql" }
func (MySQL) Placeholder(int) string { return "?" }
func (MySQL) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
func (MySQL) BatchLimit() int { return 65535 }
func (MySQL) MaxRows() int    { return 0 }

// InsertIgnore uses a no-op ON DUPLICATE KEY UPDATE rather than INSERT
// IGNORE, which would also swallow foreign key and type errors.
func (d MySQL) InsertIgnore(t *store.Table, rows int) string {
	first := d.Quote(t.Columns[0].Name)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s = %s",
		d.Quote(t.Name), quoteAll(d, t.ColumnNames()), valuesList(d, len(t.Columns), rows), first, first)
}

func (MySQL) Page(offset, limit int) string {
	switch {
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case offset > 0:
		return fmt.Sprintf(" LIMIT 18446744073709551615 OFFSET %d", offset)
	default:
		return ""
	}
}

func (MySQL) ColumnType(c store.Column) string {
	switch c.Type {
	case store.UUID:
		return "CHAR(36) CHARACTER SET ascii"
	case store.String:
		return "VARCHAR(250)"
	case store.Text:
		return "TEXT"
	case store.Time:
		return "DATETIME(6)"
	case store.Int:
		return "BIGINT"
	default:
		panic(fmt.Sprintf("unknown column type %d", c.Type))
	}
}

func (d MySQL) CreateTable(t *store.Table, schema map[string]*store.Table) string {
	defs := columnDefs(d, t)
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(d, t.Key)))
	for _, fk := range t.ForeignKeys {
		defs = append(defs, foreignKeyClause(d, fk, schema, fk.Cascade))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", d.Quote(t.Name), strings.Join(defs, ",\n  "))
}

// SQLServer targets SQL Server 2017 and later.
type SQLServer struct{}

func (SQLServer) Name() string             { return "sqlserver" }
func (SQLServer) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }
func (SQLServer) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}
func (SQLServer) BatchLimit() int { return 2000 }
func (SQLServer) MaxRows() int    { return 1000 }

// InsertIgnore is a plain insert: the primary key is created with
// IGNORE_DUP_KEY, so the engine skips duplicate rows with a warning.
func (d SQLServer) InsertIgnore(t *store.Table, rows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.Quote(t.Name), quoteAll(d, t.ColumnNames()), valuesList(d, len(t.Columns), rows))
}

func (SQLServer) Page(offset, limit int) string {
	switch {
	case limit > 0:
		return fmt.Sprintf(" OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
	case offset > 0:
		return fmt.Sprintf(" OFFSET %d ROWS", offset)
	default:
		return ""
	}
}

func (SQLServer) ColumnType(c store.Column) string {
	switch c.Type {
	case store.UUID:
		return "VARCHAR(36)"
	case store.String:
		return "NVARCHAR(250)"
	case store.Text:
		return "NVARCHAR(MAX)"
	case store.Time:
		return "DATETIME2"
	case store.Int:
		return "BIGINT"
	default:
		panic(fmt.Sprintf("unknown column type %d", c.Type))
	}
}

// CreateTable cascades only the first cascading foreign key of a table;
// SQL Server rejects multiple cascade paths to the same parent.
func (d SQLServer) CreateTable(t *store.Table, schema map[string]*store.Table) string {
	defs := columnDefs(d, t)
	defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY NONCLUSTERED (%s) WITH (IGNORE_DUP_KEY = ON)", d.Quote("pk_"+t.Name), quoteAll(d, t.Key)))
	cascaded := false
	for _, fk := range t.ForeignKeys {
		cascade := fk.Cascade && !cascaded
		cascaded = cascaded || cascade
		defs = append(defs, foreignKeyClause(d, fk, schema, cascade))
	}
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n)", t.Name, d.Quote(t.Name), strings.Join(defs, ",\n  "))
}

var (
	_ Dialect = MySQL{}
	_ Dialect = SQLServer{}
)
