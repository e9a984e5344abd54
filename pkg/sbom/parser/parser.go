// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package parser converts SBOM documents into the canonical model.Document.
package parser

import (
	"bytes"
	"encoding/json"

	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
)

// Format names a source document format.
type Format string

const (
	SPDX      Format = "spdx"
	CycloneDX Format = "cyclonedx"
)

// Metadata describes how a document was decoded.
type Metadata struct {
	Format      Format
	SpecVersion string
	// PayloadType is set when the document was unwrapped from a DSSE envelope.
	PayloadType string
	// PredicateType is set when the envelope carried an in-toto statement.
	PredicateType string
}

// DocumentParser parses raw document bytes.
type DocumentParser interface {
	Parse(data []byte) (*model.Document, *Metadata, error)
}

// FormatParser parses a single format.
type FormatParser interface {
	Format() Format
	Parse(data []byte) (*model.Document, string, error)
}

// Auto detects the format of each document, unwrapping DSSE envelopes, and
// dispatches to the parser registered for it.
type Auto struct {
	parsers map[Format]FormatParser
}

// NewAuto returns an Auto over the given parsers, or the built-in SPDX and
// CycloneDX parsers when none are given.
func NewAuto(parsers ...FormatParser) *Auto {
	if len(parsers) == 0 {
		parsers = []FormatParser{SPDXParser{}, CycloneDXParser{}}
	}
	a := &Auto{parsers: make(map[Format]FormatParser)}
	for _, p := range parsers {
		a.parsers[p.Format()] = p
	}
	return a
}

var _ DocumentParser = &Auto{}

// Parse implements DocumentParser.
func (a *Auto) Parse(data []byte) (*model.Document, *Metadata, error) {
	md := &Metadata{}
	body, err := unwrap(data, md)
	if err != nil {
		return nil, nil, err
	}
	f, err := Detect(body)
	if err != nil {
		return nil, nil, err
	}
	p, ok := a.parsers[f]
	if !ok {
		return nil, nil, sbomerr.Errorf(sbomerr.ParseFailure, "no parser for %s documents", f)
	}
	doc, version, err := p.Parse(body)
	if err != nil {
		if sbomerr.KindOf(err) == sbomerr.Unknown {
			err = sbomerr.New(sbomerr.ParseFailure, err)
		}
		return nil, nil, err
	}
	md.Format, md.SpecVersion = f, version
	return doc, md, nil
}

type sniff struct {
	SPDXVersion string `json:"spdxVersion"`
	BOMFormat   string `json:"bomFormat"`
}

// Detect identifies the format of a JSON document.
func Detect(data []byte) (Format, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return "", sbomerr.Errorf(sbomerr.ParseFailure, "not a JSON object")
	}
	var s sniff
	if err := json.Unmarshal(data, &s); err != nil {
		return "", sbomerr.New(sbomerr.ParseFailure, err)
	}
	switch {
	case s.SPDXVersion != "":
		return SPDX, nil
	case s.BOMFormat == "CycloneDX":
		return CycloneDX, nil
	default:
		return "", sbomerr.Errorf(sbomerr.ParseFailure, "unrecognized document format")
	}
}
