// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package runimport

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cheggaaa/pb"
	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/oss-sbomgraph/internal/httpx"
	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/blob"
	"github.com/google/oss-sbomgraph/pkg/sbom/importer"
	"github.com/google/oss-sbomgraph/pkg/sbom/ingest"
	"github.com/google/oss-sbomgraph/pkg/sbom/parser"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/storeurl"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// Config holds all configuration for the import command.
type Config struct {
	Store        string
	ConfigPath   string
	Importers    string
	Labels       string
	StateDir     string
	StateProject string
	GitDir       string
	Archive      string
	Compression  string
	Interval     time.Duration
	MetricsAddr  string
	Concurrency  int
	SkipInvalid  bool
	UserAgent    string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Store == "" {
		return errors.New("store is required")
	}
	if _, err := storeurl.Parse(c.Store); err != nil {
		return err
	}
	if c.ConfigPath == "" {
		return errors.New("config is required")
	}
	if c.StateDir != "" && c.StateProject != "" {
		return errors.New("only one of state-dir and state-project may be set")
	}
	if _, err := parseLabels(c.Labels); err != nil {
		return err
	}
	if _, err := blob.ParseCompression(c.Compression); err != nil {
		return err
	}
	if c.Interval < 0 {
		return errors.New("interval must not be negative")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	return nil
}

// parseLabels parses a comma-separated list of key=value pairs.
func parseLabels(s string) (map[string]string, error) {
	labels := make(map[string]string)
	if s == "" {
		return labels, nil
	}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("invalid label %q: want key=value", kv)
		}
		labels[k] = strings.TrimSpace(v)
	}
	return labels, nil
}

// Deps holds dependencies for the command.
type Deps struct {
	IO        cli.IO
	OpenStore func(ctx context.Context, url string, migrate bool) (store.Store, error)
	// Client fetches http sources.
	Client httpx.BasicClient
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{OpenStore: storeurl.Open, Client: http.DefaultClient}, nil
}

func selectImporters(all []importer.Config, names string) ([]importer.Config, error) {
	if names == "" {
		return all, nil
	}
	var out []importer.Config
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		i := slices.IndexFunc(all, func(c importer.Config) bool { return c.Name == name })
		if i < 0 {
			return nil, errors.Errorf("unknown importer %q", name)
		}
		out = append(out, all[i])
	}
	return out, nil
}

func loadImporters(path, names string) ([]importer.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolving config path")
	}
	dir, base := filepath.Split(abs)
	all, err := importer.LoadConfig(osfs.New(dir), base)
	if err != nil {
		return nil, err
	}
	return selectImporters(all, names)
}

func openArchive(ctx context.Context, cfg Config) (blob.Store, func() error, error) {
	c, err := blob.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasPrefix(cfg.Archive, "gs://") {
		s, err := blob.NewGCSStore(ctx, cfg.Archive, c)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening archive bucket")
		}
		return s, s.Close, nil
	}
	return blob.NewFSStore(osfs.New(cfg.Archive), c), func() error { return nil }, nil
}

func openState(ctx context.Context, cfg Config) (importer.StateStore, func() error, error) {
	switch {
	case cfg.StateProject != "":
		client, err := firestore.NewClient(ctx, cfg.StateProject)
		if err != nil {
			return nil, nil, errors.Wrap(err, "creating firestore client")
		}
		return &importer.FirestoreStateStore{Client: client}, client.Close, nil
	case cfg.StateDir != "":
		return &importer.FSStateStore{FS: osfs.New(cfg.StateDir)}, func() error { return nil }, nil
	default:
		log.Println("No state location set, every importer runs from scratch")
		return &importer.FSStateStore{FS: memfs.New()}, func() error { return nil }, nil
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv
}

// Handler contains the business logic for running importers.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	extra, err := parseLabels(cfg.Labels)
	if err != nil {
		return nil, err
	}
	importers, err := loadImporters(cfg.ConfigPath, cfg.Importers)
	if err != nil {
		return nil, err
	}
	s, err := deps.OpenStore(ctx, cfg.Store, true)
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	defer s.Close()
	in := &ingest.Ingestor{Parser: parser.NewAuto()}
	if cfg.SkipInvalid {
		in.Policy = ingest.Skip
	}
	if cfg.Archive != "" {
		blobs, closeBlobs, err := openArchive(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer closeBlobs()
		in.Blobs = blobs
	}
	state, closeState, err := openState(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeState()
	reg := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg)
		defer srv.Close()
	}
	bar := pb.New(0)
	bar.Output = deps.IO.Err
	bar.ShowTimeLeft = false
	bar.Start()
	defer bar.Finish()
	sched := &importer.Scheduler{
		Runner: &importer.Runner{
			Store:    s,
			Ingestor: in,
			Sources: &importer.Sources{
				Client: &httpx.WithUserAgent{BasicClient: deps.Client, UserAgent: cfg.UserAgent},
				GitDir: cfg.GitDir,
			},
			Progress: importer.NewProgress(log.New(deps.IO.Err, "", log.LstdFlags), 0),
			Metrics:  importer.NewMetrics(reg),
			OnDocument: func(string, string, importer.Outcome) {
				bar.Increment()
			},
		},
		State:       state,
		Importers:   importers,
		Concurrency: cfg.Concurrency,
	}
	if cfg.Interval > 0 {
		err = sched.Run(ctx, cfg.Interval, extra)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		err = sched.RunAll(ctx, extra)
	}
	bar.Finish()
	summarize(deps.IO, sched.Statuses())
	if err != nil {
		return nil, errors.Wrap(err, "running importers")
	}
	return &act.NoOutput{}, nil
}

func summarize(cio cli.IO, statuses []importer.Status) {
	for _, st := range statuses {
		rep := st.Last
		if rep == nil {
			fmt.Fprintf(cio.Out, "%s: %s\n", st.Importer, red(st.Err))
			continue
		}
		status := rep.Outcome.String()
		switch {
		case rep.Unchanged:
			status = "unchanged"
		case rep.Outcome == importer.Idle:
			status = "done"
		}
		fmt.Fprintf(cio.Out, "%s: %s ingested, %s skipped, %s failed [%s, %s]\n",
			st.Importer,
			green(rep.Processed), yellow(rep.Skipped), red(rep.Failed),
			status, rep.Duration.Round(time.Millisecond))
		for _, f := range rep.Failures {
			fmt.Fprintf(cio.Out, "  %s %s: %s\n", red(f.Kind), f.Path, f.Message)
		}
		if st.Err != nil {
			fmt.Fprintf(cio.Out, "  %s\n", red(st.Err))
		}
	}
}

// Command creates a new import command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "import --store <url> --config <importers.yaml> [--importers a,b] [--interval 10m]",
		Short: "Run SBOM importers",
		Args:  cobra.NoArgs,
		RunE: cli.RunE(
			&cfg,
			cli.SkipArgs[Config],
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.StringVar(&cfg.Store, "store", "", "the store url")
	set.StringVar(&cfg.ConfigPath, "config", "", "the importer file (.yaml, .yml or .toml)")
	set.StringVar(&cfg.Importers, "importers", "", "comma-separated importer names to run; all when empty")
	set.StringVar(&cfg.Labels, "labels", "", "comma-separated key=value labels added to every document")
	set.StringVar(&cfg.StateDir, "state-dir", "", "a directory holding importer checkpoints")
	set.StringVar(&cfg.StateProject, "state-project", "", "a project whose Firestore holds importer checkpoints")
	set.StringVar(&cfg.GitDir, "git-dir", "", "a directory of persistent git working copies")
	set.StringVar(&cfg.Archive, "archive", "", "a directory or gs:// location archiving raw documents")
	set.StringVar(&cfg.Compression, "compression", "", "archive compression: none, gzip or zstd")
	set.DurationVar(&cfg.Interval, "interval", 0, "when set, check importer periods on this interval until interrupted")
	set.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "when set, serve prometheus metrics on this address")
	set.IntVar(&cfg.Concurrency, "concurrency", 0, "the importers run at once; zero is unbounded")
	set.BoolVar(&cfg.SkipInvalid, "skip-invalid", false, "drop invalid identities instead of rejecting their document")
	set.StringVar(&cfg.UserAgent, "user-agent", "oss-sbomgraph", "the user agent of http sources")
	return set
}
