// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package render prints query results for the ctl commands.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/query"
	"github.com/pkg/errors"
)

// Format is an output format.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

// ParseFormat accepts "text", "json" or empty for text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", Text:
		return Text, nil
	case JSON:
		return JSON, nil
	}
	return "", errors.Errorf("unknown format %q", s)
}

func table(w io.Writer, header string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Summaries prints a page of package summaries.
func Summaries(w io.Writer, f Format, page *query.Page[query.PackageSummary]) error {
	if f == JSON {
		return cli.WriteJSON(w, page)
	}
	var rows [][]string
	for _, s := range page.Items {
		rows = append(rows, []string{s.NodeID, orDash(s.Name), orDash(s.Version), orDash(s.Type), orDash(strings.Join(s.Purls, ","))})
	}
	if err := table(w, "NODE\tNAME\tVERSION\tTYPE\tPURLS", rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d\n", len(page.Items), page.Total)
	return err
}

// PurlTypes prints the catalog's purl types.
func PurlTypes(w io.Writer, f Format, types []query.PurlType) error {
	if f == JSON {
		return cli.WriteJSON(w, types)
	}
	var rows [][]string
	for _, t := range types {
		rows = append(rows, []string{t.Type, fmt.Sprint(t.Packages)})
	}
	return table(w, "TYPE\tPACKAGES", rows)
}

// Packages prints a page of packages.
func Packages(w io.Writer, f Format, page *query.Page[query.PackageRef]) error {
	if f == JSON {
		return cli.WriteJSON(w, page)
	}
	for _, p := range page.Items {
		fmt.Fprintln(w, p.Purl)
	}
	_, err := fmt.Fprintf(w, "%d of %d\n", len(page.Items), page.Total)
	return err
}

// Package prints a package and its versions.
func Package(w io.Writer, f Format, p *query.Package) error {
	if f == JSON {
		return cli.WriteJSON(w, p)
	}
	fmt.Fprintln(w, p.Purl)
	for _, v := range p.Versions {
		fmt.Fprintf(w, "  %s\n", v.Purl)
	}
	return nil
}

// PackageVersion prints one version of a package.
func PackageVersion(w io.Writer, f Format, v *query.PackageVersion) error {
	if f == JSON {
		return cli.WriteJSON(w, v)
	}
	fmt.Fprintf(w, "%s@%s\n", v.Purl, v.Version)
	for _, q := range v.Qualified {
		fmt.Fprintf(w, "  %s\n", q.Purl)
	}
	if len(v.Licenses) > 0 {
		fmt.Fprintf(w, "licenses: %s\n", strings.Join(v.Licenses, ", "))
	}
	fmt.Fprintf(w, "documents: %d\n", len(v.Sboms))
	for _, id := range v.Sboms {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}
