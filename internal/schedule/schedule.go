// Package schedule provides the fixed-step, fixed-order scheduler that drives
// every component of a simulation run.
//
// Each tick runs entries band by band (see Order) and, within a band, in the
// order they were scheduled. Entries scheduled during a tick first run on the
// next tick. An entry stopped during a tick is skipped if it has not run yet
// and is dropped before the next tick.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/simerr"
)

// Tick identifies one simulated time step.
type Tick struct {
	Step           int64
	SecondsPerStep float64
}

// Seconds returns the simulated time at the start of this tick.
func (t Tick) Seconds() float64 {
	return float64(t.Step) * t.SecondsPerStep
}

// Hours returns the simulated time in hours.
func (t Tick) Hours() float64 {
	return t.Seconds() / constants.SecondsPerHour
}

// Steppable is anything the scheduler can drive.
type Steppable interface {
	Step(ctx context.Context, tick Tick) error
}

// StepFunc adapts a function to Steppable.
type StepFunc func(ctx context.Context, tick Tick) error

// Step calls f.
func (f StepFunc) Step(ctx context.Context, tick Tick) error { return f(ctx, tick) }

// Order is an execution band. Lower bands run first within a tick.
type Order int

const (
	OrderEnvironment Order = iota
	OrderInput
	OrderAgents
	OrderCollectors
)

type entry struct {
	item    Steppable
	order   Order
	seq     uint64
	stopped bool
}

// Handle lets a scheduled item remove itself.
type Handle struct {
	e *entry
}

// Stop removes the item from future ticks.
func (h *Handle) Stop() {
	if h != nil && h.e != nil {
		h.e.stopped = true
	}
}

// Stopped reports whether Stop has been called.
func (h *Handle) Stopped() bool {
	return h == nil || h.e == nil || h.e.stopped
}

// Schedule is a single-threaded repeating scheduler.
type Schedule struct {
	secondsPerStep float64
	logger         *slog.Logger

	step    int64
	seq     uint64
	entries []*entry
	pending []*entry
}

// New creates a schedule whose ticks are secondsPerStep apart.
func New(secondsPerStep float64, logger *slog.Logger) *Schedule {
	if logger == nil {
		logger = slog.Default()
	}
	return &Schedule{secondsPerStep: secondsPerStep, logger: logger}
}

// ScheduleRepeating adds item to run every tick, starting with the next tick.
func (s *Schedule) ScheduleRepeating(item Steppable, order Order) *Handle {
	s.seq++
	e := &entry{item: item, order: order, seq: s.seq}
	s.pending = append(s.pending, e)
	return &Handle{e: e}
}

// Now returns the tick that will run next.
func (s *Schedule) Now() Tick {
	return Tick{Step: s.step, SecondsPerStep: s.secondsPerStep}
}

// Len returns the number of live scheduled items.
func (s *Schedule) Len() int {
	n := 0
	for _, e := range s.entries {
		if !e.stopped {
			n++
		}
	}
	for _, e := range s.pending {
		if !e.stopped {
			n++
		}
	}
	return n
}

// Empty reports whether nothing is left to run.
func (s *Schedule) Empty() bool {
	return s.Len() == 0
}

// Step runs one tick. An invariant violation from any item aborts the tick
// and is returned; other item errors are logged and that item's action is
// skipped.
func (s *Schedule) Step(ctx context.Context) error {
	s.admitPending()
	tick := s.Now()

	// Items may schedule more items while we iterate; those land in pending.
	for _, e := range s.entries {
		if e.stopped {
			continue
		}
		if err := e.item.Step(ctx, tick); err != nil {
			if errors.Is(err, simerr.ErrInvariant) {
				return fmt.Errorf("step %d: %w", tick.Step, err)
			}
			s.logger.Warn("step failed, skipping action",
				"step", tick.Step,
				"item", fmt.Sprintf("%T", e.item),
				"error", err)
		}
	}

	s.step++
	return nil
}

// Run steps until the schedule is empty, maxSteps ticks have run, or ctx is
// cancelled. It returns the number of ticks executed.
func (s *Schedule) Run(ctx context.Context, maxSteps int64) (int64, error) {
	var ran int64
	for ran < maxSteps && !s.Empty() {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		if err := s.Step(ctx); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func (s *Schedule) admitPending() {
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.stopped {
			live = append(live, e)
		}
	}
	for _, e := range s.pending {
		if !e.stopped {
			live = append(live, e)
		}
	}
	s.pending = nil
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].order != live[j].order {
			return live[i].order < live[j].order
		}
		return live[i].seq < live[j].seq
	})
	s.entries = live
}
