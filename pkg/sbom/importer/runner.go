// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package importer runs configured SBOM sources through ingestion.
//
// A run walks one source, and fetches, parses, builds and commits each of
// its documents in turn. Per-document failures are recorded in the run's
// Report and, unless the importer is strict, the run continues.
package importer

import (
	"context"
	"fmt"
	"log"
	"maps"
	"time"

	"github.com/google/oss-sbomgraph/internal/ratex"
	"github.com/google/oss-sbomgraph/pkg/sbom/ingest"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/walker"
	"github.com/pkg/errors"
)

// State is the phase of an importer run.
type State int

const (
	Idle State = iota
	Fetching
	Parsing
	Building
	Committing
	Failed
	Canceled
)

var stateNames = []string{"idle", "fetching", "parsing", "building", "committing", "failed", "canceled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is what happened to a single document.
type Outcome string

const (
	Ingested Outcome = "ingested"
	// Existing documents were ingested by an earlier run.
	Existing Outcome = "existing"
	Skipped  Outcome = "skipped"
	Errored  Outcome = "failed"
)

// Failure records a document that could not be ingested.
type Failure struct {
	Path    string
	Kind    sbomerr.Kind
	Message string
}

// Report summarizes a run.
type Report struct {
	Importer string
	// Marker is the marker to persist for the next run.
	Marker string
	// Unchanged is set when the source reported the content of the previous run.
	Unchanged bool
	// Outcome is Idle for a completed run, or Failed or Canceled.
	Outcome   State
	Processed int
	Skipped   int
	Failed    int
	Failures  []Failure
	Started   time.Time
	Duration  time.Duration
}

// Runner executes importer runs against a store.
type Runner struct {
	Store    store.Beginner
	Ingestor *ingest.Ingestor
	Sources  *Sources
	// Progress receives periodic run summaries.
	Progress *Progress
	Metrics  *Metrics
	// RetryDelay is the wait before the first retry of a transient failure.
	RetryDelay time.Duration
	// OnTransition observes every state change of a run.
	OnTransition func(importer string, from, to State)
	// OnDocument observes the outcome of every document.
	OnDocument func(importer, path string, outcome Outcome)
	// Open overrides how a source is opened.
	Open func(ctx context.Context, cfg *Config, last string) (walker.Walker, error)
}

const defaultRetryDelay = time.Second

type run struct {
	*Runner
	cfg    *Config
	report *Report
	state  State
	labels map[string]string
}

// RunOnce performs one run of cfg. lastMarker is the marker returned by the
// previous run, empty for a full run. extra labels are merged over the
// configured labels of every ingested document.
//
// The returned marker is the one to persist. A canceled run returns
// lastMarker and no error. A run that fails returns lastMarker and the
// error. In every case the Report reflects the documents handled so far.
func (r *Runner) RunOnce(ctx context.Context, cfg *Config, lastMarker string, extra map[string]string) (string, *Report, error) {
	rn := &run{
		Runner: r,
		cfg:    cfg,
		report: &Report{Importer: cfg.Name, Marker: lastMarker, Started: time.Now()},
		labels: maps.Clone(cfg.Labels),
	}
	if rn.labels == nil {
		rn.labels = make(map[string]string)
	}
	maps.Copy(rn.labels, extra)
	err := rn.execute(ctx, lastMarker)
	rep := rn.report
	rep.Duration = time.Since(rep.Started)
	switch {
	case errors.Is(err, walker.ErrCanceled):
		rep.Outcome = Canceled
		rep.Marker = lastMarker
		err = nil
	case err != nil:
		rep.Outcome = Failed
		rep.Marker = lastMarker
	default:
		rep.Outcome = Idle
	}
	if rep.Outcome != Idle {
		rn.transition(rep.Outcome)
	}
	rn.transition(Idle)
	r.Metrics.observeRun(cfg.Name, rep)
	r.Progress.Done(rep)
	return rep.Marker, rep, err
}

func (rn *run) execute(ctx context.Context, last string) error {
	if err := rn.cfg.Validate(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return walker.ErrCanceled
	}
	rn.transition(Fetching)
	var w walker.Walker
	var marker string
	err := rn.retry(ctx, rn.cfg.Location(), func() error {
		var err error
		if w, err = rn.open(ctx, last); err != nil {
			return err
		}
		if marker, err = w.Open(ctx); err != nil {
			walker.Close(w)
		}
		return err
	})
	if err != nil {
		if sbomerr.Is(err, sbomerr.Canceled) || ctx.Err() != nil {
			return walker.ErrCanceled
		}
		return errors.Wrapf(err, "opening %s", rn.cfg.Location())
	}
	defer walker.Close(w)
	if last != "" && marker == last {
		log.Printf("%s: unchanged at %s", rn.cfg.Name, marker)
		rn.report.Unchanged = true
		return nil
	}
	rn.report.Marker = marker
	return walker.Process(ctx, w.Walk(ctx), rn.loadError, rn.document)
}

func (rn *run) open(ctx context.Context, last string) (walker.Walker, error) {
	if rn.Open != nil {
		return rn.Open(ctx, rn.cfg, last)
	}
	sources := rn.Sources
	if sources == nil {
		sources = &Sources{}
	}
	return sources.Walker(ctx, rn.cfg, last)
}

func (rn *run) transition(to State) {
	if rn.state == to {
		return
	}
	from := rn.state
	rn.state = to
	if rn.OnTransition != nil {
		rn.OnTransition(rn.cfg.Name, from, to)
	}
}

func (rn *run) ingestor() *ingest.Ingestor {
	if rn.Ingestor != nil {
		return rn.Ingestor
	}
	return &ingest.Ingestor{}
}

func (rn *run) loadError(le *walker.LoadError) {
	log.Printf("%s: skipping %s: %v", rn.cfg.Name, le.Path, le.Err)
	rn.record(le.Path, Skipped, le.Err)
}

// retry calls fn until it succeeds, fails with a non-transient error or the
// importer's retry bound is exhausted. The context is checked between attempts.
func (rn *run) retry(ctx context.Context, what string, fn func() error) error {
	delay := rn.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	lim := ratex.NewBackoffLimiter(delay, 30*delay)
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !sbomerr.IsTransient(err) || attempt > rn.cfg.FetchRetries {
			return err
		}
		log.Printf("%s: retrying %s (%d/%d): %v", rn.cfg.Name, what, attempt, rn.cfg.FetchRetries, err)
		rn.Metrics.retry(rn.cfg.Name)
		if err := lim.Wait(ctx); err != nil {
			return sbomerr.New(sbomerr.Canceled, err)
		}
		lim.Backoff()
	}
}

func (rn *run) document(ctx context.Context, it *walker.Item) error {
	rn.transition(Fetching)
	var data []byte
	err := rn.retry(ctx, it.Path, func() error {
		var err error
		data, err = it.Load(ctx, rn.cfg.SizeLimit)
		return err
	})
	if err != nil {
		return rn.fail(ctx, it.Path, err)
	}
	rn.transition(Parsing)
	in := rn.ingestor()
	parsed, err := in.Parse(data)
	if err != nil {
		return rn.fail(ctx, it.Path, err)
	}
	rn.transition(Building)
	prepared, err := in.Build(parsed, ingest.Options{Source: rn.cfg.Location() + "#" + it.Path, Labels: rn.labels})
	if err != nil {
		return rn.fail(ctx, it.Path, err)
	}
	rn.transition(Committing)
	var res *ingest.Result
	err = rn.retry(ctx, it.Path, func() error {
		var err error
		res, err = prepared.Commit(ctx, rn.Store)
		return err
	})
	if err != nil {
		return rn.fail(ctx, it.Path, err)
	}
	if res.Existing {
		rn.record(it.Path, Existing, nil)
	} else {
		rn.record(it.Path, Ingested, nil)
	}
	return nil
}

// fail applies the importer's error policy to a document failure. It returns
// nil when the run should continue.
func (rn *run) fail(ctx context.Context, path string, err error) error {
	kind := sbomerr.KindOf(err)
	switch {
	case kind == sbomerr.Canceled, ctx.Err() != nil:
		return walker.ErrCanceled
	case kind == sbomerr.StorageFailure:
		rn.record(path, Errored, err)
		return errors.Wrapf(err, "committing %s", path)
	case kind == sbomerr.SizeExceeded:
		rn.record(path, Skipped, err)
		return nil
	case kind == sbomerr.NotFound && rn.cfg.IgnoreMissing:
		log.Printf("%s: %s vanished, skipping", rn.cfg.Name, path)
		rn.record(path, Skipped, nil)
		return nil
	}
	rn.record(path, Errored, err)
	if rn.cfg.Strict {
		return errors.Wrapf(err, "strict importer failed on %s", path)
	}
	return nil
}

// record counts a document outcome, logging and keeping err when present.
func (rn *run) record(path string, outcome Outcome, err error) {
	rep := rn.report
	switch outcome {
	case Ingested:
		rep.Processed++
	case Existing, Skipped:
		rep.Skipped++
	case Errored:
		rep.Failed++
	}
	if err != nil {
		log.Printf("%s: %s %s: %v", rn.cfg.Name, outcome, path, err)
		rep.Failures = append(rep.Failures, Failure{Path: path, Kind: sbomerr.KindOf(err), Message: err.Error()})
	}
	rn.observe(path, outcome)
}

func (rn *run) observe(path string, outcome Outcome) {
	rn.Metrics.document(rn.cfg.Name, outcome)
	if rn.OnDocument != nil {
		rn.OnDocument(rn.cfg.Name, path, outcome)
	}
	rn.Progress.Update(rn.report)
}
