package cli

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"modelrun/internal/catalog"
	"modelrun/internal/config"
	"modelrun/internal/device"
	"modelrun/internal/events"
	"modelrun/internal/httpapi"
	"modelrun/internal/launcher"
	"modelrun/internal/metrics"
	"modelrun/internal/pipeline"
	"modelrun/internal/planner"
	"modelrun/pkg/types"
)

// app wires the components described by one Config.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Recorder
	events  events.Publisher

	catalog *catalog.Client
	querier device.Querier
	devices *device.Validator
	planner *planner.Planner

	cardsOnce sync.Once
	cards     []device.Card
}

// NewService returns the planning API backend for cfg. rec may be nil.
func NewService(cfg config.Config, log zerolog.Logger, rec *metrics.Recorder) httpapi.Service {
	return newApp(cfg, log, rec)
}

func newApp(cfg config.Config, log zerolog.Logger, rec *metrics.Recorder) *app {
	a := &app{cfg: cfg, log: log, metrics: rec}
	a.events = events.NewLogPublisher(&a.log)
	a.catalog = catalog.New(catalog.Options{
		URL:     cfg.Catalog.URL,
		Timeout: cfg.CatalogTimeout(),
		Retries: cfg.Catalog.Retries,
		Logger:  &a.log,
	})
	if len(cfg.Device.FreeMB) > 0 {
		a.querier = device.StaticQuerier(cfg.Device.FreeMB)
	} else {
		q := device.NewSMIQuerier(cfg.Device.SMIPath, cfg.Device.SMIArgs, cfg.DeviceTimeout())
		q.Logger = &a.log
		a.querier = q
	}
	a.devices = device.NewValidator(a.querier, &a.log)

	rules := make([]planner.Rule, 0, len(cfg.Planner.Rules))
	for _, r := range cfg.Planner.Rules {
		rules = append(rules, planner.Rule{Family: r.Family, ThresholdMB: r.ThresholdMB, ReservedMB: r.ReservedMB})
	}
	a.planner = planner.New(rules, planner.Fallback{CapMB: cfg.Planner.DefaultCapMB, ReservedMB: cfg.Planner.DefaultReservedMB}, &a.log)
	return a
}

// runner builds a pipeline; l may be nil for plan-only use.
func (a *app) runner(l pipeline.WorkerLauncher) *pipeline.Runner {
	return pipeline.New(pipeline.Options{
		Catalog:   a.catalog,
		Devices:   a.devices,
		Planner:   a.planner,
		Launcher:  l,
		LockDir:   a.cfg.Worker.LockDir,
		Publisher: a.events,
		Metrics:   a.metrics,
		Logger:    &a.log,
	})
}

func (a *app) launcher(worker string, s streams) *launcher.Launcher {
	return launcher.New(launcher.Options{
		Worker:      worker,
		Interpreter: a.cfg.Worker.Interpreter,
		Env:         a.cfg.Worker.Env,
		EnvFile:     a.cfg.Worker.EnvFile,
		StopGrace:   a.cfg.StopGrace(),
		Stdin:       s.in,
		Stdout:      s.out,
		Stderr:      s.err,
		Publisher:   a.events,
		Logger:      &a.log,
	})
}

func (a *app) writeTextfile() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("write metrics textfile")
	}
}

// The methods below implement httpapi.Service.

func (a *app) Models(ctx context.Context) ([]types.CatalogRecord, error) {
	return a.catalog.List(ctx)
}

func (a *app) GPUs(ctx context.Context) ([]types.GPUStatus, error) {
	free, err := a.querier.FreeMemoryMB(ctx)
	if err != nil {
		return nil, err
	}
	a.cardsOnce.Do(func() {
		cards, err := device.Inventory()
		if err != nil {
			a.log.Debug().Err(err).Msg("gpu inventory unavailable")
			return
		}
		a.cards = cards
	})
	out := make([]types.GPUStatus, len(free))
	for i, mb := range free {
		out[i] = types.GPUStatus{Index: i, Name: device.NameFor(a.cards, "nvidia", i), FreeMB: mb}
		a.metrics.SetAvailable(i, mb)
	}
	return out, nil
}

func (a *app) Plan(ctx context.Context, modelID string, args types.LaunchArgs) (types.PlanResult, error) {
	return a.runner(nil).Plan(ctx, modelID, args)
}

func (a *app) Ratio(modelID string, availableMB int) types.UtilizationPlan {
	return a.planner.Compute(modelID, availableMB)
}
