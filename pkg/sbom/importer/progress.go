// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// DefaultProgressInterval is the minimum time between progress messages.
const DefaultProgressInterval = 15 * time.Second

// Progress logs run summaries, at most one per interval while a run is
// underway and always once when it ends.
type Progress struct {
	logger    *log.Logger
	sometimes rate.Sometimes
}

// NewProgress returns a Progress writing to logger. A zero interval selects
// DefaultProgressInterval.
func NewProgress(logger *log.Logger, interval time.Duration) *Progress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Progress{logger: logger, sometimes: rate.Sometimes{Interval: interval}}
}

// Update reports rep if the interval has elapsed since the last message.
func (p *Progress) Update(rep *Report) {
	if p == nil {
		return
	}
	p.sometimes.Do(func() {
		p.logger.Printf("%s: %d processed, %d skipped, %d failed after %s", rep.Importer, rep.Processed, rep.Skipped, rep.Failed, time.Since(rep.Started).Round(time.Second))
	})
}

// Done reports the final state of rep.
func (p *Progress) Done(rep *Report) {
	if p == nil {
		return
	}
	if rep.Unchanged {
		p.logger.Printf("%s: unchanged", rep.Importer)
		return
	}
	p.logger.Printf("%s: %s with %d processed, %d skipped, %d failed in %s", rep.Importer, rep.Outcome, rep.Processed, rep.Skipped, rep.Failed, rep.Duration.Round(time.Millisecond))
}
