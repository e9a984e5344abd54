// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/pkg/errors"
)

func TestSelectSQL(t *testing.T) {
	q := store.Query{
		Table:   entity.NodeTable,
		Where:   []store.Cond{store.Eq("sbom_id", "doc"), store.In("node_id", "a", "b")},
		OrderBy: []string{"name"},
		Offset:  10,
		Limit:   5,
	}
	for _, tc := range []struct {
		dialect Dialect
		want    string
	}{
		{
			dialect: MySQL{},
			want:    "SELECT `sbom_id`, `node_id`, `name` FROM `sbom_node` WHERE `sbom_id` = ? AND `node_id` IN (?, ?) ORDER BY `name`, `sbom_id`, `node_id` LIMIT 5 OFFSET 10",
		},
		{
			dialect: SQLServer{},
			want:    "SELECT [sbom_id], [node_id], [name] FROM [sbom_node] WHERE [sbom_id] = @p1 AND [node_id] IN (@p2, @p3) ORDER BY [name], [sbom_id], [node_id] OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY",
		},
	} {
		t.Run(tc.dialect.Name(), func(t *testing.T) {
			got, args, err := SelectSQL(tc.dialect, q)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("SelectSQL() =\n%s\nwant\n%s", got, tc.want)
			}
			if diff := cmp.Diff([]any{"doc", "a", "b"}, args); diff != "" {
				t.Errorf("args diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountSQL(t *testing.T) {
	q := store.Query{
		Table:  entity.PackageTable,
		Where:  []store.Cond{store.IsNull("version"), store.In("node_id")},
		Offset: 3,
		Limit:  1,
	}
	got, args, err := CountSQL(MySQL{}, q)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT COUNT(*) FROM `sbom_package` WHERE `version` IS NULL AND 1 = 0"
	if got != want {
		t.Errorf("CountSQL() = %s, want %s", got, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestDeleteSQL(t *testing.T) {
	where := []store.Cond{store.Eq("sbom_id", "doc")}
	for _, tc := range []struct {
		dialect Dialect
		want    string
	}{
		{MySQL{}, "DELETE FROM `sbom_node` WHERE `sbom_id` = ?"},
		{SQLServer{}, "DELETE FROM [sbom_node] WHERE [sbom_id] = @p1"},
	} {
		got, args, err := DeleteSQL(tc.dialect, entity.NodeTable, where)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("DeleteSQL(%s) = %s, want %s", tc.dialect.Name(), got, tc.want)
		}
		if diff := cmp.Diff([]any{"doc"}, args); diff != "" {
			t.Errorf("args diff (-want +got):\n%s", diff)
		}
	}
}

func TestSelectSQLUnknownColumn(t *testing.T) {
	_, _, err := SelectSQL(MySQL{}, store.Query{Table: entity.NodeTable, Where: []store.Cond{store.Eq("nope", 1)}})
	if err == nil {
		t.Error("SelectSQL() with unknown column succeeded")
	}
}

func TestInsertIgnore(t *testing.T) {
	for _, tc := range []struct {
		dialect Dialect
		want    string
	}{
		{MySQL{}, "INSERT INTO `license` (`id`, `text`) VALUES (?, ?), (?, ?) ON DUPLICATE KEY UPDATE `id` = `id`"},
		{SQLServer{}, "INSERT INTO [license] ([id], [text]) VALUES (@p1, @p2), (@p3, @p4)"},
	} {
		if got := tc.dialect.InsertIgnore(entity.LicenseTable, 2); got != tc.want {
			t.Errorf("%s InsertIgnore() = %s, want %s", tc.dialect.Name(), got, tc.want)
		}
	}
}

func TestCreateStatements(t *testing.T) {
	stmts := CreateStatements(MySQL{}, entity.Schema())
	if len(stmts) != len(entity.Schema()) {
		t.Fatalf("got %d statements, want %d", len(stmts), len(entity.Schema()))
	}
	want := "CREATE TABLE IF NOT EXISTS `sbom_node` (\n" +
		"  `sbom_id` CHAR(36) CHARACTER SET ascii NOT NULL,\n" +
		"  `node_id` VARCHAR(250) NOT NULL,\n" +
		"  `name` TEXT NOT NULL,\n" +
		"  PRIMARY KEY (`sbom_id`, `node_id`),\n" +
		"  FOREIGN KEY (`sbom_id`) REFERENCES `sbom` (`id`) ON DELETE CASCADE\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	if stmts[6] != want {
		t.Errorf("sbom_node DDL =\n%s\nwant\n%s", stmts[6], want)
	}

	mssql := CreateStatements(SQLServer{}, entity.Schema())
	rel := mssql[len(mssql)-1]
	if !strings.Contains(rel, "WITH (IGNORE_DUP_KEY = ON)") {
		t.Errorf("relationship DDL lacks IGNORE_DUP_KEY:\n%s", rel)
	}
	if n := strings.Count(rel, "ON DELETE CASCADE"); n != 1 {
		t.Errorf("relationship DDL has %d cascading keys, want 1:\n%s", n, rel)
	}
	if !strings.HasPrefix(mssql[0], "IF OBJECT_ID(N'sbom', N'U') IS NULL\nCREATE TABLE [sbom]") {
		t.Errorf("sbom DDL = %s", mssql[0])
	}
}

func TestChunkRows(t *testing.T) {
	for _, tc := range []struct {
		dialect Dialect
		table   *store.Table
		want    int
	}{
		{MySQL{}, entity.RelationshipTable, 16383},
		{SQLServer{}, entity.LicenseTable, 1000},
		{SQLServer{}, entity.SbomTable, 200},
	} {
		if got := ChunkRows(tc.dialect, tc.table); got != tc.want {
			t.Errorf("ChunkRows(%s, %s) = %d, want %d", tc.dialect.Name(), tc.table.Name, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name       string
		err        error
		foreignKey bool
		transient  bool
	}{
		{name: "deadlock", err: &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}, transient: true},
		{name: "lock wait timeout", err: &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, transient: true},
		{name: "mysql foreign key", err: &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, foreignKey: true},
		{name: "mssql foreign key", err: errors.New("The INSERT statement conflicted with the FOREIGN KEY constraint"), foreignKey: true},
		{name: "other", err: errors.New("connection reset")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(entity.NodeTable, tc.err)
			if !sbomerr.Is(err, sbomerr.StorageFailure) {
				t.Errorf("classify() = %v, want StorageFailure", err)
			}
			if got := errors.Is(err, store.ErrForeignKey); got != tc.foreignKey {
				t.Errorf("errors.Is(classify(), ErrForeignKey) = %v, want %v", got, tc.foreignKey)
			}
			if got := sbomerr.IsTransient(err); got != tc.transient {
				t.Errorf("IsTransient(classify()) = %v, want %v", got, tc.transient)
			}
		})
	}
}
