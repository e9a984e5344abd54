// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type greetConfig struct {
	Name, Greeting string
}

func (c greetConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type greetDeps struct {
	IO IO
}

func (d *greetDeps) SetIO(cio IO) { d.IO = cio }

func greet(_ context.Context, cfg greetConfig, deps *greetDeps) (*act.NoOutput, error) {
	greeting := cfg.Greeting
	if greeting == "" {
		greeting = "Hello"
	}
	deps.IO.Out.Write([]byte(greeting + " " + cfg.Name))
	return &act.NoOutput{}, nil
}

func greetArgs(c *greetConfig) []*string { return []*string{&c.Name, &c.Greeting} }

func newGreet() (*cobra.Command, *bytes.Buffer) {
	cfg := greetConfig{}
	cmd := &cobra.Command{
		Use: "greet <name> [greeting]",
		RunE: RunE(
			&cfg,
			Positional(1, greetArgs),
			func(context.Context) (*greetDeps, error) { return &greetDeps{}, nil },
			greet,
		),
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out
}

func TestRunE(t *testing.T) {
	for _, tc := range []struct {
		args    []string
		want    string
		wantErr string
	}{
		{[]string{"World"}, "Hello World", ""},
		{[]string{"World", "Hi"}, "Hi World", ""},
		{[]string{}, "", "expected 1 to 2 arguments, got 0"},
		{[]string{"a", "b", "c"}, "", "expected 1 to 2 arguments, got 3"},
		{[]string{""}, "", "name is required"},
	} {
		cmd, out := newGreet()
		cmd.SetArgs(tc.args)
		err := cmd.Execute()
		if tc.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Execute(%q) = %v, want %q", tc.args, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Execute(%q) = %v", tc.args, err)
		}
		if diff := cmp.Diff(tc.want, out.String()); diff != "" {
			t.Errorf("Execute(%q) output (-want +got):\n%s", tc.args, diff)
		}
	}
}

func TestSkipArgs(t *testing.T) {
	cfg := &greetConfig{Name: "x"}
	if err := SkipArgs(cfg, []string{"ignored"}); err != nil {
		t.Errorf("SkipArgs() = %v", err)
	}
	if cfg.Name != "x" {
		t.Errorf("SkipArgs() modified the config: %+v", cfg)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"total": 2}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("{\n  \"total\": 2\n}\n", buf.String()); diff != "" {
		t.Errorf("WriteJSON() (-want +got):\n%s", diff)
	}
}
