// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log"

	"github.com/google/oss-sbomgraph/tools/ctl/command/deletesbom"
	"github.com/google/oss-sbomgraph/tools/ctl/command/describes"
	"github.com/google/oss-sbomgraph/tools/ctl/command/migrate"
	"github.com/google/oss-sbomgraph/tools/ctl/command/packages"
	"github.com/google/oss-sbomgraph/tools/ctl/command/related"
	"github.com/google/oss-sbomgraph/tools/ctl/command/runimport"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ctl",
	Short: "A tool for ingesting and querying SBOM graphs",
}

func init() {
	rootCmd.AddCommand(migrate.Command())
	rootCmd.AddCommand(runimport.Command())
	rootCmd.AddCommand(describes.Command())
	rootCmd.AddCommand(related.Command())
	rootCmd.AddCommand(packages.Command())
	rootCmd.AddCommand(deletesbom.Command())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
