// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	stderrors "errors"
	"log"
	"sync"
	"time"

	"github.com/google/oss-sbomgraph/internal/syncx"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Status is the live state of an importer known to a Scheduler.
type Status struct {
	Importer string
	Running  bool
	LastRun  time.Time
	Last     *Report
	Err      error
}

// Scheduler runs importers on their periods, persisting markers between runs.
// Importers run concurrently and independently; each importer has at most one
// run in flight.
type Scheduler struct {
	Runner    *Runner
	State     StateStore
	Importers []Config
	// Concurrency bounds the importers running at once. Zero is unbounded.
	Concurrency int
	Now         func() time.Time

	status  syncx.Map[string, *Status]
	running syncx.Map[string, *sync.Mutex]
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RunImporter runs cfg once from its stored marker and saves the outcome. A
// canceled run leaves the stored checkpoint untouched.
func (s *Scheduler) RunImporter(ctx context.Context, cfg *Config, extra map[string]string) (*Report, error) {
	mu, _ := s.running.LoadOrStore(cfg.Name, &sync.Mutex{})
	if !mu.TryLock() {
		return nil, errors.Errorf("importer %q is already running", cfg.Name)
	}
	defer mu.Unlock()
	cp, err := s.State.Load(ctx, cfg.Name)
	if err != nil {
		return nil, err
	}
	st := &Status{Importer: cfg.Name, Running: true, LastRun: s.now()}
	if prev, ok := s.status.Load(cfg.Name); ok {
		st.Last = prev.Last
	}
	s.status.Store(cfg.Name, st)
	marker, rep, runErr := s.Runner.RunOnce(ctx, cfg, cp.Marker, extra)
	s.status.Store(cfg.Name, &Status{Importer: cfg.Name, LastRun: st.LastRun, Last: rep, Err: runErr})
	if rep.Outcome == Canceled {
		return rep, nil
	}
	next := &Checkpoint{
		Importer:  cfg.Name,
		Marker:    marker,
		LastRun:   st.LastRun,
		LastState: rep.Outcome.String(),
		Processed: rep.Processed,
		Skipped:   rep.Skipped,
		Failed:    rep.Failed,
	}
	if runErr != nil {
		next.LastError = runErr.Error()
	}
	if err := s.State.Save(ctx, next); err != nil {
		return rep, stderrors.Join(runErr, err)
	}
	return rep, runErr
}

// Due reports whether cfg should run at now given its checkpoint.
func Due(cfg *Config, cp *Checkpoint, now time.Time) bool {
	if cfg.Disabled {
		return false
	}
	return cp.LastRun.IsZero() || !now.Before(cp.LastRun.Add(time.Duration(cfg.Period)))
}

// RunDue runs every importer that is due. A failing importer does not stop
// the others; the errors of all failed importers are joined.
func (s *Scheduler) RunDue(ctx context.Context, extra map[string]string) error {
	return s.runEach(ctx, extra, true)
}

// RunAll runs every enabled importer once, regardless of its period.
func (s *Scheduler) RunAll(ctx context.Context, extra map[string]string) error {
	return s.runEach(ctx, extra, false)
}

func (s *Scheduler) runEach(ctx context.Context, extra map[string]string, onlyDue bool) error {
	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	var mu sync.Mutex
	var errs []error
	for i := range s.Importers {
		cfg := &s.Importers[i]
		if cfg.Disabled {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			var err error
			if onlyDue {
				err = s.runIfDue(ctx, cfg, extra)
			} else {
				_, err = s.RunImporter(ctx, cfg, extra)
			}
			if err != nil {
				log.Printf("%s: %v", cfg.Name, err)
				mu.Lock()
				errs = append(errs, errors.Wrap(err, cfg.Name))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return stderrors.Join(errs...)
}

func (s *Scheduler) runIfDue(ctx context.Context, cfg *Config, extra map[string]string) error {
	cp, err := s.State.Load(ctx, cfg.Name)
	if err != nil {
		return err
	}
	if !Due(cfg, cp, s.now()) {
		return nil
	}
	_, err = s.RunImporter(ctx, cfg, extra)
	return err
}

// Run calls RunDue every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, extra map[string]string) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		// Importer failures are logged by RunDue and retried on their period.
		s.RunDue(ctx, extra)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Statuses returns the status of every importer that has run, by name.
func (s *Scheduler) Statuses() []Status {
	var out []Status
	for _, st := range s.status.Sorted() {
		out = append(out, *st)
	}
	return out
}
