// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"bytes"
	"encoding"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-playground/validator/v10"
	"github.com/google/oss-sbomgraph/internal/glob"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SourceKind selects how an importer finds documents.
type SourceKind string

const (
	// DirSource walks a local directory.
	DirSource SourceKind = "dir"
	// GitSource walks the tree of a git repository at a ref.
	GitSource SourceKind = "git"
	// HTTPSource fetches a single document by URL.
	HTTPSource SourceKind = "http"
)

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

var (
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextMarshaler   = Duration(0)
)

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// SourceConfig locates the documents of an importer.
type SourceConfig struct {
	Kind SourceKind `yaml:"kind" toml:"kind" validate:"required,oneof=dir git http"`
	// Path is the directory to walk. For git sources it is relative to the
	// repository root.
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
	URL  string `yaml:"url,omitempty" toml:"url,omitempty" validate:"omitempty,url"`
	Ref  string `yaml:"ref,omitempty" toml:"ref,omitempty"`
	// Depth limits the git history fetched. Zero fetches everything.
	Depth int `yaml:"depth,omitempty" toml:"depth,omitempty" validate:"gte=0"`
	// Patterns restricts the documents to matching paths.
	Patterns []string `yaml:"patterns,omitempty" toml:"patterns,omitempty"`
}

// Config is one configured importer.
type Config struct {
	Name        string            `yaml:"name" toml:"name" validate:"required,max=128"`
	Description string            `yaml:"description,omitempty" toml:"description,omitempty"`
	Disabled    bool              `yaml:"disabled,omitempty" toml:"disabled,omitempty"`
	Period      Duration          `yaml:"period,omitempty" toml:"period,omitempty" validate:"gte=0"`
	Labels      map[string]string `yaml:"labels,omitempty" toml:"labels,omitempty"`
	Source      SourceConfig      `yaml:"source" toml:"source"`
	// SizeLimit is the largest document accepted, in bytes. Zero is unlimited.
	SizeLimit int64 `yaml:"size_limit,omitempty" toml:"size_limit,omitempty" validate:"gte=0"`
	// FetchRetries bounds the retries of a transient fetch failure.
	FetchRetries int `yaml:"fetch_retries,omitempty" toml:"fetch_retries,omitempty" validate:"gte=0,lte=100"`
	// IgnoreMissing skips documents that disappear between listing and fetch.
	IgnoreMissing bool `yaml:"ignore_missing,omitempty" toml:"ignore_missing,omitempty"`
	// Strict fails the run on the first document that fails.
	Strict bool `yaml:"strict,omitempty" toml:"strict,omitempty"`
}

var validate = validator.New()

// Validate checks field constraints and the fields each source kind needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(err, "importer %q", c.Name)
	}
	s := c.Source
	switch s.Kind {
	case DirSource:
		if s.Path == "" {
			return errors.Errorf("importer %q: dir source requires a path", c.Name)
		}
		if s.URL != "" || s.Ref != "" || s.Depth != 0 {
			return errors.Errorf("importer %q: dir source takes only a path and patterns", c.Name)
		}
	case GitSource:
		if s.URL == "" {
			return errors.Errorf("importer %q: git source requires a url", c.Name)
		}
	case HTTPSource:
		if s.URL == "" {
			return errors.Errorf("importer %q: http source requires a url", c.Name)
		}
		if s.Path != "" || s.Ref != "" || s.Depth != 0 || len(s.Patterns) != 0 {
			return errors.Errorf("importer %q: http source takes only a url", c.Name)
		}
	}
	if _, err := glob.Compile(s.Patterns...); err != nil {
		return errors.Wrapf(err, "importer %q: patterns", c.Name)
	}
	return nil
}

// Location describes the source for logs and document rows.
func (c *Config) Location() string {
	switch c.Source.Kind {
	case DirSource:
		return string(DirSource) + ":" + c.Source.Path
	case GitSource:
		loc := string(GitSource) + ":" + c.Source.URL
		if c.Source.Ref != "" {
			loc += "@" + c.Source.Ref
		}
		return loc
	default:
		return string(c.Source.Kind) + ":" + c.Source.URL
	}
}

// File is the on-disk form of a set of importers.
type File struct {
	Importers []Config `yaml:"importers" toml:"importers"`
}

// ParseConfig decodes and validates a YAML or TOML importer file. Unknown
// fields are rejected.
func ParseConfig(data []byte, format string) ([]Config, error) {
	var f File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		if err := d.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "decoding yaml config")
		}
	case "toml":
		d := toml.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		if err := d.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "decoding toml config")
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", format)
	}
	seen := make(map[string]bool)
	for i := range f.Importers {
		c := &f.Importers[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, errors.Errorf("duplicate importer %q", c.Name)
		}
		seen[c.Name] = true
	}
	return f.Importers, nil
}

// LoadConfig reads an importer file, choosing the format by extension.
func LoadConfig(fs billy.Filesystem, name string) ([]Config, error) {
	data, err := util.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return ParseConfig(data, strings.TrimPrefix(filepath.Ext(name), "."))
}
