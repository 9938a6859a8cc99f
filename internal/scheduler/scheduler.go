// Package scheduler drives collection rounds on a fixed interval.
//
// At most one round is ever in flight. A tick arriving while a round is
// running is dropped and logged as skipped, never queued, so a slow
// round can delay collection but can never build a backlog.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/pelotoniq/metricsd/internal/collector"
	"github.com/pelotoniq/metricsd/internal/metric"
)

// Scheduler states.
const (
	stateIdle int32 = iota
	stateRunningRound
)

// Outcome records one collector's result within a round. Outcomes are
// ephemeral; they exist for logging only.
type Outcome struct {
	Collector string
	Writes    int
	Duration  time.Duration
	Err       error
}

// Round is the ephemeral record of one complete collection round.
type Round struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Scheduler runs all collectors concurrently on every tick and applies
// each successful batch to the registry as it completes. It is the sole
// registry writer in the process.
type Scheduler struct {
	interval   time.Duration
	registry   *metric.Registry
	collectors []collector.Collector
	logger     *slog.Logger

	state   atomic.Int32
	rounds  atomic.Int64
	skipped atomic.Int64
	wg      sync.WaitGroup
}

// New creates a scheduler. Descriptors must already be registered.
func New(interval time.Duration, registry *metric.Registry, collectors []collector.Collector, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval:   interval,
		registry:   registry,
		collectors: collectors,
		logger:     logger,
	}
}

// Run starts the scheduling loop in a background goroutine: one
// immediate round, then one round attempt per tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.wg.Go(func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped",
					"rounds", s.rounds.Load(), "skipped_ticks", s.skipped.Load())
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	})
}

// Wait blocks until the scheduling loop and any in-flight round exit.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// SkippedTicks reports how many ticks were dropped due to an in-flight
// round.
func (s *Scheduler) SkippedTicks() int64 {
	return s.skipped.Load()
}

// tick attempts the Idle -> RunningRound transition. The round runs in
// its own goroutine so the loop keeps observing (and dropping) ticks
// while the round is in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.state.CompareAndSwap(stateIdle, stateRunningRound) {
		s.skipped.Add(1)
		s.logger.Warn("collection round still running, tick skipped",
			"interval", s.interval)
		return
	}

	s.wg.Go(func() {
		defer s.state.Store(stateIdle)
		round := s.runRound(ctx)
		s.logRound(round)
	})
}

// runRound fans out all collectors, joining without short-circuiting:
// every collector finishes (or fails) independently.
func (s *Scheduler) runRound(ctx context.Context) Round {
	round := Round{
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, len(s.collectors)),
	}

	var wg conc.WaitGroup
	for i, c := range s.collectors {
		wg.Go(func() {
			round.Outcomes[i] = s.runCollector(ctx, c)
		})
	}
	wg.Wait()

	round.FinishedAt = time.Now()
	s.rounds.Add(1)
	return round
}

// runCollector executes one collector and applies its batch. Failures,
// including panics, are caught and recorded; they never cross the
// round boundary.
func (s *Scheduler) runCollector(ctx context.Context, c collector.Collector) Outcome {
	start := time.Now()
	outcome := Outcome{Collector: c.Name()}

	var writes []metric.Write
	var err error
	recovered := panics.Try(func() {
		writes, err = c.Collect(ctx)
	})

	switch {
	case recovered != nil:
		outcome.Err = recovered.AsError()
	case err != nil:
		outcome.Err = err
	default:
		// All-or-nothing: the batch lands atomically or not at all.
		if applyErr := s.registry.Apply(writes); applyErr != nil {
			outcome.Err = applyErr
		} else {
			outcome.Writes = len(writes)
		}
	}

	outcome.Duration = time.Since(start)
	return outcome
}

func (s *Scheduler) logRound(round Round) {
	failed := 0
	for _, o := range round.Outcomes {
		if o.Err != nil {
			failed++
			s.logger.Error("collector failed",
				"collector", o.Collector, "duration", o.Duration, "error", o.Err)
		} else {
			s.logger.Debug("collector finished",
				"collector", o.Collector, "duration", o.Duration, "writes", o.Writes)
		}
	}

	s.logger.Info("collection round finished",
		"duration", round.FinishedAt.Sub(round.StartedAt),
		"collectors", len(round.Outcomes),
		"failed", failed)
}
