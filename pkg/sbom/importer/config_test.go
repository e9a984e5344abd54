// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
)

const yamlConfig = `
importers:
  - name: local
    period: 1h
    labels:
      team: infra
    source:
      kind: dir
      path: /var/sboms
      patterns: ["*.spdx.json", "**/*.cdx.json"]
    size_limit: 1048576
  - name: upstream
    source:
      kind: git
      url: https://github.com/example/sboms
      ref: main
      depth: 1
    fetch_retries: 3
    strict: true
`

const tomlConfig = `
[[importers]]
name = "local"
period = "1h"
size_limit = 1048576

[importers.labels]
team = "infra"

[importers.source]
kind = "dir"
path = "/var/sboms"
patterns = ["*.spdx.json", "**/*.cdx.json"]

[[importers]]
name = "upstream"
fetch_retries = 3
strict = true

[importers.source]
kind = "git"
url = "https://github.com/example/sboms"
ref = "main"
depth = 1
`

var wantConfigs = []Config{
	{
		Name:      "local",
		Period:    Duration(time.Hour),
		Labels:    map[string]string{"team": "infra"},
		Source:    SourceConfig{Kind: DirSource, Path: "/var/sboms", Patterns: []string{"*.spdx.json", "**/*.cdx.json"}},
		SizeLimit: 1 << 20,
	},
	{
		Name:         "upstream",
		Source:       SourceConfig{Kind: GitSource, URL: "https://github.com/example/sboms", Ref: "main", Depth: 1},
		FetchRetries: 3,
		Strict:       true,
	},
}

func TestParseConfig(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		format string
		data   string
	}{
		{"yaml", yamlConfig},
		{"toml", tomlConfig},
	} {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			got, err := ParseConfig([]byte(tc.data), tc.format)
			if err != nil {
				t.Fatalf("ParseConfig() = %v", err)
			}
			if diff := cmp.Diff(wantConfigs, got); diff != "" {
				t.Errorf("ParseConfig() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name    string
		format  string
		data    string
		wantErr string
	}{
		{"unknown field", "yaml", "importers:\n  - name: a\n    colour: red\n    source: {kind: dir, path: /x}\n", "colour"},
		{"unknown toml field", "toml", "[[importers]]\nname = \"a\"\ncolour = \"red\"\n", "decoding toml"},
		{"bad format", "ini", "", "unsupported config format"},
		{"missing name", "yaml", "importers:\n  - source: {kind: dir, path: /x}\n", "Name"},
		{"bad kind", "yaml", "importers:\n  - name: a\n    source: {kind: ftp, url: ftp://x}\n", "Kind"},
		{"dir without path", "yaml", "importers:\n  - name: a\n    source: {kind: dir}\n", "requires a path"},
		{"dir with url", "yaml", "importers:\n  - name: a\n    source: {kind: dir, path: /x, url: https://x}\n", "only a path"},
		{"git without url", "yaml", "importers:\n  - name: a\n    source: {kind: git}\n", "requires a url"},
		{"http with patterns", "yaml", "importers:\n  - name: a\n    source: {kind: http, url: https://x/a.json, patterns: [a]}\n", "only a url"},
		{"bad url", "yaml", "importers:\n  - name: a\n    source: {kind: http, url: not a url}\n", "URL"},
		{"bad pattern", "yaml", "importers:\n  - name: a\n    source: {kind: dir, path: /x, patterns: [\"a**\"]}\n", "patterns"},
		{"bad period", "yaml", "importers:\n  - name: a\n    period: often\n    source: {kind: dir, path: /x}\n", "often"},
		{"too many retries", "yaml", "importers:\n  - name: a\n    fetch_retries: 1000\n    source: {kind: dir, path: /x}\n", "FetchRetries"},
		{"duplicate", "yaml", "importers:\n  - name: a\n    source: {kind: dir, path: /x}\n  - name: a\n    source: {kind: dir, path: /y}\n", "duplicate importer"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tc.data), tc.format)
			if err == nil {
				t.Fatal("ParseConfig() succeeded")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("ParseConfig() = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	fs := memfs.New()
	if err := util.WriteFile(fs, "importers.toml", []byte(tomlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(fs, "importers.toml")
	if err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	if diff := cmp.Diff(wantConfigs, got); diff != "" {
		t.Errorf("LoadConfig() (-want +got):\n%s", diff)
	}
	if _, err := LoadConfig(fs, "absent.yaml"); err == nil {
		t.Error("LoadConfig() of an absent file succeeded")
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		source SourceConfig
		want   string
	}{
		{SourceConfig{Kind: DirSource, Path: "/var/sboms"}, "dir:/var/sboms"},
		{SourceConfig{Kind: GitSource, URL: "https://g/r"}, "git:https://g/r"},
		{SourceConfig{Kind: GitSource, URL: "https://g/r", Ref: "v1"}, "git:https://g/r@v1"},
		{SourceConfig{Kind: HTTPSource, URL: "https://h/a.json"}, "http:https://h/a.json"},
	} {
		cfg := &Config{Source: tc.source}
		if got := cfg.Location(); got != tc.want {
			t.Errorf("Location() = %q, want %q", got, tc.want)
		}
	}
}

func TestDurationText(t *testing.T) {
	t.Parallel()
	var d Duration
	if err := d.UnmarshalText([]byte("90m")); err != nil {
		t.Fatal(err)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "1h30m0s" {
		t.Errorf("MarshalText() = %q, want 1h30m0s", text)
	}
	if err := d.UnmarshalText(nil); err != nil || d != 0 {
		t.Errorf("UnmarshalText(nil) = %v, %v", d, err)
	}
}
