package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mano8/imgtools-m8/concurrency"
	"github.com/mano8/imgtools-m8/config"
	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/imaging"
	"github.com/mano8/imgtools-m8/logging"
	"github.com/mano8/imgtools-m8/metrics"
	"github.com/mano8/imgtools-m8/model"
	"github.com/mano8/imgtools-m8/scaling"
	"github.com/mano8/imgtools-m8/storage"
	"github.com/mano8/imgtools-m8/utils"
)

// Engine drives a batch run end to end. Collaborators are injected so tests
// can substitute codec, storage and model backends.
type Engine struct {
	cfg      config.Process
	codec    imaging.Codec
	provider storage.Provider
	store    model.Store
	planner  scaling.Planner
	metrics  *metrics.Collector
	log      logging.Logger

	// The model handle is loaded once, on the first source that needs an
	// upscale, then shared read-only by all workers.
	modelMu  sync.Mutex
	handle   model.Handle
	modelErr error
}

// Option customizes an Engine.
type Option func(*Engine)

func WithCodec(c imaging.Codec) Option          { return func(e *Engine) { e.codec = c } }
func WithProvider(p storage.Provider) Option    { return func(e *Engine) { e.provider = p } }
func WithStore(s model.Store) Option            { return func(e *Engine) { e.store = s } }
func WithLogger(l logging.Logger) Option        { return func(e *Engine) { e.log = l } }
func WithCollector(c *metrics.Collector) Option { return func(e *Engine) { e.metrics = c } }
func WithPlanner(p scaling.Planner) Option      { return func(e *Engine) { e.planner = p } }

// NewEngine validates cfg and assembles a runnable engine. Configuration
// problems surface here, before any image is touched.
func NewEngine(cfg config.Process, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.codec == nil {
		e.codec = imaging.NewNative()
	}
	if e.provider == nil {
		e.provider = storage.NewLocalProvider()
	}
	if e.metrics == nil {
		e.metrics = metrics.NewCollector()
	}
	if e.log == nil {
		e.log = logging.Named("pipeline")
	}

	family := cfg.Model.Name
	if family == "" {
		family = model.DefaultFamily
	}

	if e.store == nil && cfg.Model.Enabled() {
		store, err := model.NewFileStore(cfg.Model.Path, family, model.InterpolationLoader())
		if err != nil {
			return nil, err
		}
		e.store = store
	}

	if cfg.Model.Scale > 0 && !model.IsValidScale(family, cfg.Model.Scale) {
		return nil, errors.NewInvalidScale(family, cfg.Model.Scale, model.FamilyScales(family))
	}

	// Model files are probed up front: a pinned scale without its file, or
	// a directory with no family files at all, must fail before any source
	// is written. Only auto-selection stays lazy, it needs source sizes.
	if e.store != nil {
		available, err := e.store.AvailableScales()
		if err != nil {
			return nil, err
		}
		if len(available) == 0 {
			return nil, errors.NewNoModelFiles(family)
		}
		if cfg.Model.Scale > 0 {
			found := false
			for _, scale := range available {
				if scale == cfg.Model.Scale {
					found = true
					break
				}
			}
			if !found {
				return nil, errors.NewModelNotFound(family, cfg.Model.Scale)
			}
		}
	}

	return e, nil
}

// Metrics exposes the run counters.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}

// Run processes every source. Per-source failures are recorded in the report
// and do not stop the batch; fatal errors (configuration, model resolution)
// abort the whole run.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	if err := utils.CreateDir(e.cfg.OutputPath); err != nil {
		return report, errors.NewIO(e.cfg.OutputPath, err)
	}

	sources, err := e.resolveSources(ctx)
	if err != nil {
		return report, err
	}
	if len(sources) == 0 {
		e.log.Warn("no image sources found", zap.String("source_path", e.cfg.SourcePath))
		report.FinishedAt = time.Now()
		return report, nil
	}

	e.log.Info("starting batch",
		zap.Int("sources", len(sources)),
		zap.Int("jobs", e.cfg.Jobs),
		zap.String("provider", e.provider.Name()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatalMu sync.Mutex
	var fatal error

	results := make([]SourceResult, len(sources))
	tasks := make([]concurrency.Task, len(sources))
	for i, source := range sources {
		i, source := i, source
		tasks[i] = func(taskCtx context.Context) error {
			start := time.Now()
			outputs, err := e.processSource(taskCtx, source)
			results[i] = SourceResult{
				Source:   source,
				Outputs:  outputs,
				Error:    errors.FromError(err),
				Duration: time.Since(start),
			}
			if err != nil && errors.IsFatal(err) {
				fatalMu.Lock()
				if fatal == nil {
					fatal = err
				}
				fatalMu.Unlock()
				cancel()
			}
			return err
		}
	}

	taskErrs := concurrency.NewExecutor(e.cfg.Jobs).Run(runCtx, tasks)
	for i, err := range taskErrs {
		if results[i].Source == "" {
			// Task never ran: the context was canceled first.
			results[i] = SourceResult{Source: sources[i], Error: errors.FromError(err)}
		}
	}

	report.Sources = results
	report.FinishedAt = time.Now()
	report.Counters = e.metrics.Snapshot()

	if fatal != nil {
		return report, fatal
	}

	summary := report.Summary()
	if summary.HasErrors() {
		e.log.Warn("batch finished with failures",
			zap.Int("failed", len(summary.Files())),
			zap.Int("total", len(sources)))
	} else {
		e.log.Info("batch finished",
			zap.Int("sources", len(sources)),
			zap.Int64("outputs", e.metrics.Get(metrics.OutputsWritten)),
			zap.Duration("upscale_time", e.metrics.Duration(metrics.UpscaleTime)))
	}
	return report, nil
}

// resolveSources expands the configured source path into the list of image
// files to process, in deterministic order.
func (e *Engine) resolveSources(ctx context.Context) ([]string, error) {
	if utils.IsFile(e.cfg.SourcePath) {
		if !utils.IsImageExt(utils.Extension(e.cfg.SourcePath)) {
			return nil, errors.NewInvalidSetting("source_path", e.cfg.SourcePath, "not a supported image format")
		}
		return []string{e.cfg.SourcePath}, nil
	}
	return e.provider.ListImages(ctx, e.cfg.SourcePath)
}

// processSource runs one source through decode, upscale planning and the
// output fan-out.
func (e *Engine) processSource(ctx context.Context, source string) ([]Output, error) {
	img, err := e.codec.Decode(source)
	if err != nil {
		e.metrics.Inc(metrics.SourcesFailed)
		return nil, err
	}
	origW, origH := imaging.Size(img)
	e.log.Info("open image",
		zap.String("source", source),
		zap.Int("width", origW),
		zap.Int("height", origH),
		zap.String("size", utils.HumanSize(utils.FileSize(source))))
	cache := newStepCache(img)

	if err := e.coverTargets(ctx, cache, origW, origH); err != nil {
		e.metrics.Inc(metrics.SourcesFailed)
		return nil, err
	}

	fan := &fanOut{codec: e.codec, provider: e.provider, metrics: e.metrics, log: e.log}
	outputs, err := fan.produce(ctx, cache, source, e.cfg.OutputPath, e.cfg.Outputs)
	if err != nil {
		e.metrics.Inc(metrics.SourcesFailed)
		return outputs, err
	}

	e.metrics.Inc(metrics.SourcesOK)
	return outputs, nil
}

// coverTargets grows the step cache until every output entry that enlarges
// the source is covered by an upscaled intermediate. Without a configured
// model the fan-out writes the original untouched for such entries.
func (e *Engine) coverTargets(ctx context.Context, cache *stepCache, origW, origH int) error {
	if e.store == nil {
		return nil
	}

	type target struct{ w, h int }
	var targets []target
	var ratios []float64
	for _, entry := range e.cfg.Outputs {
		targetW, targetH, err := entry.Constraint().Target(origW, origH)
		if err != nil {
			return err
		}
		ratio := scaling.NeededRatio(origW, origH, targetW, targetH)
		if ratio <= 1 {
			continue
		}
		targets = append(targets, target{w: targetW, h: targetH})
		ratios = append(ratios, ratio)
	}
	if len(targets) == 0 {
		return nil
	}

	// The model scale is chosen against the most demanding entry, so one
	// loaded model serves the whole fan-out.
	handle, err := e.modelHandle(model.OverallRatio(ratios))
	if err != nil {
		return err
	}

	up := &upscaler{planner: e.planner, metrics: e.metrics, log: e.log}
	for _, tgt := range targets {
		if err := up.ensure(ctx, handle, cache, origW, origH, tgt.w, tgt.h); err != nil {
			return err
		}
	}
	return nil
}

// modelHandle loads the model once and shares it. Auto-selection uses the
// needed ratio of the first source that requires an upscale.
func (e *Engine) modelHandle(needed float64) (model.Handle, error) {
	e.modelMu.Lock()
	defer e.modelMu.Unlock()

	if e.handle != nil {
		return e.handle, nil
	}
	if e.modelErr != nil {
		return nil, e.modelErr
	}

	available, err := e.store.AvailableScales()
	if err != nil {
		e.modelErr = err
		return nil, err
	}
	scale, err := model.SelectScale(available, e.cfg.Model.Scale, needed)
	if err != nil {
		e.modelErr = err
		return nil, err
	}
	handle, err := e.store.Load(scale)
	if err != nil {
		e.modelErr = err
		return nil, err
	}

	e.log.Info("model loaded",
		zap.String("family", e.cfg.Model.Name),
		zap.Int("scale", scale))
	e.handle = handle
	return handle, nil
}
