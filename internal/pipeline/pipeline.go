// Package pipeline runs the launch sequence: resolve the model in the
// catalog, check GPU capacity, pick a utilization ratio, assemble the worker
// parameters and start the worker. Every step is terminal on failure.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"modelrun/internal/events"
	"modelrun/internal/launcher"
	"modelrun/internal/metrics"
	"modelrun/pkg/types"
)

// Resolver looks a model id up in the catalog.
type Resolver interface {
	Resolve(ctx context.Context, id string) (types.ModelDescriptor, error)
}

// CapacityChecker verifies that a model fits on a GPU.
type CapacityChecker interface {
	Check(ctx context.Context, d types.ModelDescriptor, gpuIndex int) (types.DeviceMemoryState, error)
}

// RatioPlanner picks the memory utilization ratio.
type RatioPlanner interface {
	Compute(modelID string, availableMB int) types.UtilizationPlan
}

// WorkerLauncher runs the worker to completion, calling started once it is spawned.
type WorkerLauncher interface {
	Launch(ctx context.Context, cfg types.LaunchConfig, started func(pid int)) error
}

// DefaultLockWait bounds how long Run waits for another launch on the same GPU.
const DefaultLockWait = 2 * time.Minute

type Options struct {
	Catalog  Resolver
	Devices  CapacityChecker
	Planner  RatioPlanner
	Launcher WorkerLauncher

	// LockDir enables the per-GPU launch lock when non-empty.
	LockDir  string
	LockWait time.Duration

	Publisher events.Publisher
	Metrics   *metrics.Recorder
	Logger    *zerolog.Logger
}

type Runner struct {
	opts Options
	pub  events.Publisher
	log  zerolog.Logger
}

func New(opts Options) *Runner {
	if opts.LockWait <= 0 {
		opts.LockWait = DefaultLockWait
	}
	r := &Runner{opts: opts, pub: events.OrNoop(opts.Publisher), log: zerolog.Nop()}
	if opts.Logger != nil {
		r.log = opts.Logger.With().Str("component", "pipeline").Logger()
	}
	return r
}

// Plan executes every step except the launch.
func (r *Runner) Plan(ctx context.Context, modelID string, args types.LaunchArgs) (types.PlanResult, error) {
	runID := uuid.NewString()
	res, err := r.plan(ctx, runID, modelID, args)
	r.finish(runID, modelID, "planned", err)
	return res, err
}

// Run executes the full pipeline and blocks until the worker exits.
func (r *Runner) Run(ctx context.Context, modelID string, args types.LaunchArgs) error {
	runID := uuid.NewString()
	err := r.run(ctx, runID, modelID, args)
	r.finish(runID, modelID, "ok", err)
	return err
}

func (r *Runner) run(ctx context.Context, runID, modelID string, args types.LaunchArgs) error {
	if r.opts.Launcher == nil {
		return launcher.ErrMissingWorker("no launcher configured")
	}
	log := r.log.With().Str("run_id", runID).Str("model", modelID).Logger()

	var lock *launcher.GPULock
	if r.opts.LockDir != "" {
		gpu, err := launcher.PrimaryGPU(args.GPUIDs)
		if err != nil {
			return err
		}
		lctx, cancel := context.WithTimeout(ctx, r.opts.LockWait)
		lock, err = launcher.AcquireGPULock(lctx, r.opts.LockDir, gpu)
		cancel()
		if err != nil {
			return err
		}
		log.Debug().Int("gpu", gpu).Msg("launch lock held")
		defer func() { _ = lock.Release() }()
	}

	res, err := r.plan(ctx, runID, modelID, args)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err = r.opts.Launcher.Launch(events.WithRunID(ctx, runID), res.Launch, func(pid int) {
		log.Info().Int("pid", pid).Strs("args", res.WorkerArgs).Msg("worker running")
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Msg("release launch lock")
		}
	})
	r.observe("launch", start)
	return err
}

func (r *Runner) plan(ctx context.Context, runID, modelID string, args types.LaunchArgs) (types.PlanResult, error) {
	res := types.PlanResult{RunID: runID}
	log := r.log.With().Str("run_id", runID).Str("model", modelID).Logger()
	if r.opts.Catalog == nil || r.opts.Devices == nil || r.opts.Planner == nil {
		return res, fmt.Errorf("pipeline not fully configured")
	}
	gpu, err := launcher.PrimaryGPU(args.GPUIDs)
	if err != nil {
		return res, err
	}

	start := time.Now()
	d, err := r.opts.Catalog.Resolve(ctx, modelID)
	r.observe("resolve", start)
	if err != nil {
		return res, fmt.Errorf("resolve: %w", err)
	}
	if err := launcher.ValidateDescriptor(d); err != nil {
		return res, err
	}
	res.Descriptor = d
	r.pub.Publish(events.Event{Name: events.Resolved, RunID: runID, ModelID: modelID, Fields: map[string]any{"source": d.SourceModelID, "size_gb": d.SizeGB}})
	log.Debug().Str("source", d.SourceModelID).Float64("size_gb", d.SizeGB).Str("quantization", string(d.Quantization)).Msg("resolved")

	start = time.Now()
	mem, err := r.opts.Devices.Check(ctx, d, gpu)
	r.observe("check", start)
	res.Memory = mem
	if mem.AvailableMB > 0 {
		r.opts.Metrics.SetAvailable(gpu, mem.AvailableMB)
	}
	if err != nil {
		return res, fmt.Errorf("capacity check: %w", err)
	}
	r.pub.Publish(events.Event{Name: events.CapacityOK, RunID: runID, ModelID: modelID, Fields: map[string]any{"gpu": gpu, "available_mb": mem.AvailableMB, "required_mb": mem.RequiredMB}})

	start = time.Now()
	plan := r.opts.Planner.Compute(d.ID, mem.AvailableMB)
	r.observe("plan", start)
	res.Plan = plan
	r.opts.Metrics.SetRatio(d.ID, plan.Ratio)
	r.pub.Publish(events.Event{Name: events.Planned, RunID: runID, ModelID: modelID, Fields: map[string]any{"ratio": plan.Ratio, "rule": plan.Rule}})

	cfg, err := launcher.Assemble(d, plan, args)
	if err != nil {
		return res, err
	}
	res.Launch = cfg
	res.WorkerArgs = launcher.Args(cfg)
	log.Info().Float64("ratio", plan.Ratio).Str("rule", plan.Rule).Int("gpu", gpu).Int("available_mb", mem.AvailableMB).Msg("planned")
	return res, nil
}

func (r *Runner) observe(step string, start time.Time) {
	r.opts.Metrics.ObserveStep(step, time.Since(start))
}

func (r *Runner) finish(runID, modelID, success string, err error) {
	outcome := Outcome(err)
	if err == nil {
		outcome = success
	} else {
		r.pub.Publish(events.Event{Name: events.Failed, RunID: runID, ModelID: modelID, Fields: map[string]any{"error": err.Error(), "outcome": outcome}})
	}
	r.opts.Metrics.RunFinished(outcome)
}
