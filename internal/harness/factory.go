package harness

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/addon/window"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/globals"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/lifecycle"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/shared/id"
)

// Factory builds isolated harness instances from a default configuration,
// default globals and a leak tracker.
type Factory struct {
	defaults      func() loader.Options
	globals       func() map[string]any
	preload       []string
	tracker       *lifecycle.Tracker
	logger        *logging.Logger
	metrics       *monitoring.Metrics
	loaderOptions []loader.Option
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithDefaults sets the source of the default loader configuration used
// when no explicit configuration is given.
func WithDefaults(defaults func() loader.Options) FactoryOption {
	return func(f *Factory) { f.defaults = defaults }
}

// WithProfile uses a resolved process profile as the default configuration
// and preload set.
func WithProfile(p *config.Profile) FactoryOption {
	return func(f *Factory) {
		if p == nil {
			return
		}
		f.defaults = p.Options.Clone
		f.preload = append([]string(nil), p.Preload...)
	}
}

// WithGlobals sets the source of the default globals.
func WithGlobals(defaults func() map[string]any) FactoryOption {
	return func(f *Factory) { f.globals = defaults }
}

// WithTracker sets the tracker every harness is registered with.
func WithTracker(t *lifecycle.Tracker) FactoryOption {
	return func(f *Factory) { f.tracker = t }
}

// WithLogger sets the factory logger, also handed to every loader.
func WithLogger(logger *logging.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics sets the metrics harnesses and loaders report to.
func WithMetrics(metrics *monitoring.Metrics) FactoryOption {
	return func(f *Factory) { f.metrics = metrics }
}

// WithLoaderOptions appends options passed to every loader built.
func WithLoaderOptions(opts ...loader.Option) FactoryOption {
	return func(f *Factory) { f.loaderOptions = append(f.loaderOptions, opts...) }
}

// NewFactory creates a factory. Unless configured otherwise it starts from
// an empty configuration, the process default globals and the process-wide
// tracker.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		defaults: func() loader.Options { return loader.Options{} },
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.globals == nil {
		logger := f.logger
		f.globals = func() map[string]any { return globals.Defaults(logger) }
	}
	if f.tracker == nil {
		f.tracker = lifecycle.Default()
	}
	f.logger = f.logger.Named("harness")
	return f
}

var (
	defaultFactory *Factory
	defaultOnce    sync.Once
)

// Default returns the process-wide factory, configured from the
// environment.
func Default() *Factory {
	defaultOnce.Do(func() {
		cfg := config.LoadOrDefault()
		logger, err := cfg.NewLogger()
		if err != nil {
			logger = logging.NewDefault()
		}

		defaultFactory = newConfiguredFactory(cfg, logger)
	})
	return defaultFactory
}

// fallbackProfile supplies the profile used when the configured one cannot
// be opened.
var fallbackProfile = func() (*config.Profile, error) {
	return config.Default().Profile()
}

func newConfiguredFactory(cfg *config.Config, logger *logging.Logger) *Factory {
	options := []FactoryOption{
		WithLogger(logger),
		WithMetrics(monitoring.Default()),
		WithTracker(lifecycle.Default()),
	}

	profile, err := cfg.Profile()
	if err != nil {
		logger.Warn("invalid loader profile, using defaults", zap.Error(err))
		profile, err = fallbackProfile()
	}
	if err != nil {
		logger.Error("default loader profile unavailable", zap.Error(err))
		return NewFactory(options...)
	}
	return NewFactory(append(options, WithProfile(profile))...)
}

// New builds a harness for caller. The configuration starts from explicit,
// or the factory defaults when nil. globals are layered over the default
// globals, the overrides over the configuration, and the add-on window
// stand-in is always substituted. A configuration the loader rejects is
// returned as is and nothing is registered.
func (f *Factory) New(caller *loader.Module, globals map[string]any, explicit *loader.Options, overrides Overrides) (*Harness, error) {
	var base loader.Options
	if explicit != nil {
		base = *explicit
	} else {
		base = f.defaults()
	}

	effective := Merge(base, Overrides{
		ID:      overrides.ID,
		Name:    overrides.Name,
		Paths:   overrides.Paths,
		Globals: mergeMaps(f.globals(), globals),
		Modules: mergeMaps(overrides.Modules, map[string]any{window.ModuleID: loader.ModuleFactory(window.Module)}),
	})

	options := append([]loader.Option{
		loader.WithLogger(f.logger),
		loader.WithMetrics(f.metrics),
	}, f.loaderOptions...)

	l, err := loader.New(effective, options...)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		Loader:  l,
		caller:  caller,
		key:     id.NewHarnessID().String(),
		preload: f.preload,
		tracker: f.tracker,
	}

	if err := f.tracker.Ensure(h.key, h); err != nil {
		f.logger.Warn("harness not tracked",
			zap.String("harness", h.key),
			zap.String("loader", l.ID),
			zap.Error(err))
	}

	f.logger.Debug("harness created",
		zap.String("harness", h.key),
		zap.String("loader", l.ID))
	return h, nil
}

// New builds a harness from the default factory.
func New(caller *loader.Module, globals map[string]any, explicit *loader.Options, overrides Overrides) (*Harness, error) {
	return Default().New(caller, globals, explicit, overrides)
}
