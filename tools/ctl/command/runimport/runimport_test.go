// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package runimport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/blob"
	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/importer"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/memstore"
)

const document = `{
  "spdxVersion": "SPDX-2.3",
  "SPDXID": "SPDXRef-DOCUMENT",
  "name": "app",
  "documentNamespace": "https://example.com/app",
  "documentDescribes": ["SPDXRef-app"],
  "packages": [{
    "SPDXID": "SPDXRef-app",
    "name": "app",
    "versionInfo": "1.0",
    "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/app@1.0"}]
  }]
}`

const importers = `
importers:
  - name: local
    labels:
      team: infra
    source:
      kind: dir
      path: %DIR%
      patterns: ["*.json"]
  - name: other
    disabled: true
    source:
      kind: dir
      path: %DIR%
`

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing store",
			cfg:     Config{ConfigPath: "importers.yaml"},
			wantErr: true,
		},
		{
			name:    "missing config",
			cfg:     Config{Store: "memory:"},
			wantErr: true,
		},
		{
			name:    "both state locations",
			cfg:     Config{Store: "memory:", ConfigPath: "importers.yaml", StateDir: "/tmp/state", StateProject: "p"},
			wantErr: true,
		},
		{
			name:    "malformed labels",
			cfg:     Config{Store: "memory:", ConfigPath: "importers.yaml", Labels: "env"},
			wantErr: true,
		},
		{
			name:    "unknown compression",
			cfg:     Config{Store: "memory:", ConfigPath: "importers.yaml", Compression: "lz4"},
			wantErr: true,
		},
		{
			name:    "negative interval",
			cfg:     Config{Store: "memory:", ConfigPath: "importers.yaml", Interval: -1},
			wantErr: true,
		},
		{
			name:    "valid config",
			cfg:     Config{Store: "memory:", ConfigPath: "importers.yaml", Labels: "env=prod", Compression: "gzip"},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLabels(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{"", map[string]string{}, false},
		{"env=prod", map[string]string{"env": "prod"}, false},
		{"env=prod, team = infra", map[string]string{"env": "prod", "team": "infra"}, false},
		{"empty=", map[string]string{"empty": ""}, false},
		{"env", nil, true},
		{"=prod", nil, true},
	} {
		got, err := parseLabels(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLabels(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("parseLabels(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestSelectImporters(t *testing.T) {
	all := []importer.Config{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	got, err := selectImporters(all, "c, a")
	if err != nil {
		t.Fatalf("selectImporters() = %v", err)
	}
	if diff := cmp.Diff([]importer.Config{{Name: "c"}, {Name: "a"}}, got); diff != "" {
		t.Errorf("selectImporters() (-want +got):\n%s", diff)
	}
	if _, err := selectImporters(all, "d"); err == nil {
		t.Error("selectImporters(d) succeeded, want error")
	}
}

func TestHandler(t *testing.T) {
	color.NoColor = true
	ctx := context.Background()
	root := t.TempDir()
	docs := filepath.Join(root, "sboms")
	if err := os.Mkdir(docs, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "app.json"), []byte(document), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "notes.txt"), []byte("not a document"), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(root, "importers.yaml")
	if err := os.WriteFile(configPath, []byte(strings.ReplaceAll(importers, "%DIR%", docs)), 0o644); err != nil {
		t.Fatal(err)
	}
	s := memstore.New(entity.Schema()...)
	var out, errOut bytes.Buffer
	deps := &Deps{
		IO: cli.IO{Out: &out, Err: &errOut},
		OpenStore: func(context.Context, string, bool) (store.Store, error) {
			return s, nil
		},
	}
	cfg := Config{
		Store:       "memory:",
		ConfigPath:  configPath,
		Labels:      "env=prod",
		StateDir:    filepath.Join(root, "state"),
		Archive:     filepath.Join(root, "archive"),
		Compression: "gzip",
	}
	if _, err := Handler(ctx, cfg, deps); err != nil {
		t.Fatalf("Handler() = %v", err)
	}
	if !strings.HasPrefix(out.String(), "local: 1 ingested, 0 skipped, 0 failed [done, ") {
		t.Errorf("Handler() output = %q", out.String())
	}
	rows, err := store.SelectAs[*entity.Sbom](ctx, s, store.Query{Table: entity.SbomTable})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("stored %d documents, want 1", len(rows))
	}
	labels, err := rows[0].LabelMap()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"team": "infra", "env": "prod"}, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	archived, err := blob.NewFSStore(osfs.New(cfg.Archive), blob.Gzip).Exists(ctx, blob.Sum([]byte(document)))
	if err != nil {
		t.Fatal(err)
	}
	if !archived {
		t.Error("document was not archived")
	}
	if _, err := os.Stat(filepath.Join(cfg.StateDir, "local.json")); err != nil {
		t.Errorf("checkpoint was not saved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.StateDir, "other.json")); err == nil {
		t.Error("disabled importer saved a checkpoint")
	}
}

func TestHandlerUnknownImporter(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, "importers.yaml")
	if err := os.WriteFile(configPath, []byte(strings.ReplaceAll(importers, "%DIR%", root)), 0o644); err != nil {
		t.Fatal(err)
	}
	deps := &Deps{
		IO: cli.IO{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}},
		OpenStore: func(context.Context, string, bool) (store.Store, error) {
			t.Fatal("store opened for an unknown importer")
			return nil, nil
		},
	}
	_, err := Handler(context.Background(), Config{Store: "memory:", ConfigPath: configPath, Importers: "missing"}, deps)
	if err == nil || !strings.Contains(err.Error(), `unknown importer "missing"`) {
		t.Errorf("Handler() = %v, want unknown importer error", err)
	}
}
