// Package sim builds and runs one simulation: it wires the tissue context,
// the statistics collectors and the result sinks, and records the run in the
// results store.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/logging"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/stats"
	"github.com/kalden/ppsim/internal/store"
	"github.com/kalden/ppsim/internal/telemetry"
	"github.com/kalden/ppsim/internal/tissue"
)

// Options supplies the collaborators of a Runner. Zero values fall back to
// defaults.
type Options struct {
	Logger *slog.Logger

	// Store receives the run record and results. When nil the store named
	// by the configuration is opened and owned by the Runner.
	Store store.ResultStore

	// NoStore disables the results store entirely. Files are still written.
	NoStore bool

	// RunID overrides the generated run identifier.
	RunID string
}

// Runner owns every resource of one run.
type Runner struct {
	ID     string
	Config *config.Config
	Sim    *tissue.Context

	Collectors *stats.Collectors
	Inputs     []*tissue.InputController

	logger    *slog.Logger
	decisions *logging.DecisionLogger
	files     *stats.FileSink
	sink      stats.MultiSink
	store     store.ResultStore
	ownsStore bool
	info      models.RunInfo
	closed    bool
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Status     models.RunStatus
	Steps      int64
	Hours      float64
	ResultsDir string
	Duration   time.Duration
	Population []tissue.PopulationCount
}

// New resolves cfg, seeds the tissue and schedules the collectors. The
// returned Runner must be closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	id := opts.RunID
	if id == "" {
		id = uuid.NewString()
	}

	r := &Runner{ID: id, Config: cfg, logger: opts.Logger.With("run", id)}
	if err := r.prepare(ctx, opts); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Runner) prepare(ctx context.Context, opts Options) error {
	cfg := r.Config
	runDir := cfg.RunDir()
	r.decisions = logging.NewDecisionLogger(runDir, cfg.Logging.Level)

	var err error
	r.Sim, err = tissue.NewContext(cfg, tissue.Options{Logger: r.logger, Decisions: r.decisions})
	if err != nil {
		return err
	}

	r.files, err = stats.NewFileSink(runDir)
	if err != nil {
		return err
	}
	r.sink = stats.MultiSink{r.files}

	switch {
	case opts.NoStore:
	case opts.Store != nil:
		r.store = opts.Store
	case cfg.DatabasePath() != "":
		r.store, err = store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("opening results store: %w", err)
		}
		r.ownsStore = true
	}

	if r.store != nil {
		snapshot, err := cfg.Marshal()
		if err != nil {
			return err
		}
		r.info = models.RunInfo{
			ID:             r.ID,
			Description:    cfg.Experiment.Description,
			Replicate:      cfg.Experiment.Replicate,
			Seed:           cfg.Experiment.Seed,
			Status:         models.RunStatusRunning,
			Hours:          cfg.Simulation.Hours,
			SecondsPerStep: cfg.Simulation.SecondsPerStep,
			StartedAt:      time.Now().UTC(),
			ResultsDir:     runDir,
			Config:         string(snapshot),
		}
		if err := r.store.CreateRun(ctx, r.info); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		r.sink = append(r.sink, stats.NewStoreSink(r.store, r.ID))
	}

	r.Inputs, err = r.Sim.Setup()
	if err != nil {
		r.finish(ctx, models.RunStatusFailed, err)
		return err
	}
	r.Collectors, err = stats.Attach(r.Sim, r.sink)
	if err != nil {
		r.finish(ctx, models.RunStatusFailed, err)
		return err
	}

	r.logger.Info("run prepared",
		"description", cfg.Experiment.Description,
		"replicate", cfg.Experiment.Replicate,
		"seed", cfg.Experiment.Seed,
		"steps", r.Sim.EndStep,
		"results", runDir)
	return nil
}

// Run steps the schedule until every component has stopped, the run reaches
// its end tick, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ppsim.run",
		trace.WithAttributes(
			attribute.String("ppsim.run_id", r.ID),
			attribute.String("ppsim.description", r.Config.Experiment.Description),
			attribute.Int64("ppsim.seed", int64(r.Config.Experiment.Seed)),
			attribute.Float64("ppsim.hours", r.Config.Simulation.Hours),
			attribute.Int64("ppsim.end_step", r.Sim.EndStep),
		))
	defer span.End()

	hourly := &hourlyReport{sim: r.Sim, span: span, every: r.Config.Simulation.StepsFor(1)}
	hourly.handle = r.Sim.Schedule.ScheduleRepeating(hourly, schedule.OrderCollectors)

	started := time.Now()
	steps, err := r.Sim.Schedule.Run(ctx, r.Sim.EndStep+1)

	status := models.RunStatusCompleted
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = models.RunStatusCancelled
	case err != nil:
		status = models.RunStatusFailed
	}
	r.info.Steps = steps
	r.finish(context.WithoutCancel(ctx), status, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("ppsim.status", string(status)),
		attribute.Int64("ppsim.steps", steps))

	res := &Result{
		RunID:      r.ID,
		Status:     status,
		Steps:      steps,
		Hours:      float64(steps) * r.Config.Simulation.SecondsPerStep / constants.SecondsPerHour,
		ResultsDir: r.files.Dir(),
		Duration:   time.Since(started),
		Population: r.Sim.Counters.Snapshot(),
	}

	r.logger.Info("run finished",
		"status", status,
		"steps", steps,
		"duration", res.Duration.Round(time.Millisecond),
		"decisions", r.decisions.Written())
	if err != nil {
		return res, fmt.Errorf("run %s: %w", r.ID, err)
	}
	return res, nil
}

// finish records the terminal status of the run. Store errors are logged;
// they must not mask the run's own error.
func (r *Runner) finish(ctx context.Context, status models.RunStatus, runErr error) {
	if r.store == nil {
		return
	}
	now := time.Now().UTC()
	r.info.Status = status
	r.info.FinishedAt = &now
	if runErr != nil {
		r.info.Error = runErr.Error()
	}
	if err := r.store.UpdateRun(ctx, r.info); err != nil {
		r.logger.Warn("failed to record run status", "status", status, "error", err)
	}
}

// Close releases the run's files and, when owned, its store. It is safe to
// call more than once.
func (r *Runner) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.sink != nil {
		errs = append(errs, r.sink.Close())
	}
	errs = append(errs, r.decisions.Close())
	if r.ownsStore && r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}

// hourlyReport logs the population once per simulated hour and adds it to
// the run span as an event.
type hourlyReport struct {
	sim    *tissue.Context
	span   trace.Span
	every  int64
	handle *schedule.Handle
}

func (h *hourlyReport) Step(ctx context.Context, tick schedule.Tick) error {
	if tick.Step >= h.sim.EndStep {
		h.handle.Stop()
	}
	if h.every < 1 || tick.Step == 0 || tick.Step%h.every != 0 {
		return nil
	}

	attrs := []attribute.KeyValue{attribute.Float64("ppsim.hour", tick.Hours())}
	args := []any{"hour", tick.Hours()}
	for _, pop := range h.sim.Migrating {
		class := pop.Kind.Class
		live := h.sim.Counters.Live(class)
		attrs = append(attrs, attribute.Int("ppsim.live."+class, live))
		args = append(args, class, live)
	}
	for _, pop := range h.sim.Stromal {
		class := pop.Kind.Class
		expressing := h.sim.Counters.Count(class, tissue.StateActiveExpressing) +
			h.sim.Counters.Count(class, tissue.StateProliferating)
		attrs = append(attrs, attribute.Int("ppsim.expressing."+class, expressing))
		args = append(args, class+"_expressing", expressing)
	}

	h.span.AddEvent("simulated hour", trace.WithAttributes(attrs...))
	h.sim.Logger.Info("simulated hour", args...)
	return nil
}
