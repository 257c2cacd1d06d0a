package harness

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dop251/goja"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/addon/window"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/lifecycle"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/shared/utils"
	"github.com/GriffinCanCode/AgentOS/sdkloader/tests/helpers/testutil"
)

var caller = &loader.Module{ID: "tests/test-harness"}

type fixture struct {
	factory *Factory
	tracker *lifecycle.Tracker
	metrics *monitoring.Metrics
}

func newFixture(t *testing.T, files map[string]string, opts ...FactoryOption) *fixture {
	t.Helper()
	fx := &fixture{
		tracker: lifecycle.NewTracker(),
		metrics: monitoring.NewMetrics(prometheus.NewRegistry()),
	}
	defaults := testutil.Options(t, files)
	defaults.ID = "ldr_default"

	fx.factory = NewFactory(append([]FactoryOption{
		WithDefaults(defaults.Clone),
		WithTracker(fx.tracker),
		WithLogger(testutil.NewTestLogger(t)),
		WithMetrics(fx.metrics),
	}, opts...)...)
	return fx
}

func (fx *fixture) harness(t *testing.T, globals map[string]any, overrides Overrides) *Harness {
	t.Helper()
	h, err := fx.factory.New(caller, globals, nil, overrides)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Unload("test-cleanup") })
	return h
}

func TestIdentityOverride(t *testing.T) {
	fx := newFixture(t, nil)

	h := fx.harness(t, nil, Overrides{ID: "X"})
	assert.Equal(t, "X", h.ID)

	h = fx.harness(t, nil, Overrides{})
	assert.Equal(t, "ldr_default", h.ID)
}

func TestLoaderSurfaceReachable(t *testing.T) {
	fx := newFixture(t, map[string]string{"a/b.js": `exports.v = 1;`})
	h := fx.harness(t, nil, Overrides{Name: "named"})

	assert.Equal(t, "named", h.Name)
	assert.Same(t, caller, h.Caller())
	assert.NotNil(t, h.Runtime())

	_, err := h.Loader.Require(nil, "a/b")
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.TestRoot + "a/b.js"}, h.Loaded())
}

func TestRequireRelativeToCaller(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"tests/helper.js": `exports.name = "helper";`,
	})
	h := fx.harness(t, nil, Overrides{})

	exports, err := h.Require("./helper")
	require.NoError(t, err)
	assert.Equal(t, "helper", exports.ToObject(h.Runtime()).Get("name").String())
}

func TestSandboxConsistency(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"a/b.js": `this.marker = 42; exports.v = 1;`,
	})
	h := fx.harness(t, nil, Overrides{})

	assert.Nil(t, h.Sandbox("a/b"))

	exports, err := h.Require("a/b")
	require.NoError(t, err)

	sb := h.Sandbox("a/b")
	require.NotNil(t, sb)
	assert.Equal(t, testutil.TestRoot+"a/b.js", sb.URI)
	assert.Equal(t, utils.DefaultHasher().HashString(`this.marker = 42; exports.v = 1;`), sb.Digest)
	assert.EqualValues(t, 42, sb.Get("marker").ToInteger())
	assert.True(t, sb.Module.Exports().SameAs(exports))
	assert.Same(t, sb, h.Sandbox("a/b"))
	assert.Same(t, sb, h.Sandboxes()[sb.URI])

	assert.Nil(t, h.Sandbox("../../escape"))
	assert.Nil(t, h.Sandbox("a/other"))
}

func TestSandboxResolvesAgainstCaller(t *testing.T) {
	fx := newFixture(t, map[string]string{"a/b.js": `exports.v = 1;`})
	h, err := fx.factory.New(&loader.Module{ID: "a/main"}, nil, nil, Overrides{})
	require.NoError(t, err)
	defer h.Unload("done")

	_, err = h.Require("./b")
	require.NoError(t, err)
	require.NotNil(t, h.Sandbox("./b"))
	assert.Same(t, h.Sandbox("./b"), h.Sandbox("a/b"))
}

func TestSandboxUnmapped(t *testing.T) {
	fx := newFixture(t, nil)
	explicit := loader.Options{Paths: map[string]string{"lib": "resource://lib/"}}

	h, err := fx.factory.New(caller, nil, &explicit, Overrides{})
	require.NoError(t, err)
	defer h.Unload("done")

	assert.Nil(t, h.Sandbox("elsewhere/x"))
}

func TestModuleSubstitution(t *testing.T) {
	fx := newFixture(t, nil)
	h := fx.harness(t, nil, Overrides{
		Modules: map[string]any{"fake/id": map[string]any{"fake": true}},
	})

	exports, err := h.Require("fake/id")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fake": true}, exports.Export())
	assert.Nil(t, h.Sandbox("fake/id"))

	again, err := h.Require("fake/id")
	require.NoError(t, err)
	assert.True(t, again.SameAs(exports))
}

func TestModuleSubstitutionSkipsResolution(t *testing.T) {
	fx := newFixture(t, nil)
	stub := loader.ModuleFactory(func(vm *goja.Runtime, _ *loader.Loader) (goja.Value, error) {
		return vm.ToValue("stub"), nil
	})

	// No source and no mapping: anything but a substitution would fail.
	h, err := fx.factory.New(caller, nil, &loader.Options{}, Overrides{
		Modules: map[string]any{"fake/id": stub},
	})
	require.NoError(t, err)
	defer h.Unload("done")

	exports, err := h.Require("fake/id")
	require.NoError(t, err)
	assert.Equal(t, "stub", exports.String())
}

func TestWindowStandInAlwaysWins(t *testing.T) {
	fx := newFixture(t, nil)
	explicit := loader.Options{Modules: map[string]any{window.ModuleID: "from-base"}}

	h, err := fx.factory.New(caller, nil, &explicit, Overrides{
		Modules: map[string]any{window.ModuleID: "from-overrides"},
	})
	require.NoError(t, err)
	defer h.Unload("done")

	exports, err := h.Require(window.ModuleID)
	require.NoError(t, err)
	win := exports.ToObject(h.Runtime()).Get("window")
	require.NotNil(t, win)
	assert.Equal(t, window.BlankURL, win.ToObject(h.Runtime()).Get("location").ToObject(h.Runtime()).Get("href").String())
}

func TestExplicitConfigIsNotModified(t *testing.T) {
	fx := newFixture(t, nil)
	explicit := loader.Options{ID: "ldr_explicit", Globals: map[string]any{"a": 1}}

	h, err := fx.factory.New(caller, map[string]any{"b": 2}, &explicit, Overrides{})
	require.NoError(t, err)
	defer h.Unload("done")

	assert.Equal(t, "ldr_explicit", h.ID)
	assert.Equal(t, map[string]any{"a": 1}, explicit.Globals)
	assert.Nil(t, explicit.Modules)

	v, err := h.Eval("globals.js", `[typeof a, typeof b, typeof console, typeof dump].join(",")`)
	require.NoError(t, err)
	assert.Equal(t, "number,number,object,function", v.String())
}

func TestGlobalsOverrideDefaults(t *testing.T) {
	fx := newFixture(t, nil, WithGlobals(func() map[string]any {
		return map[string]any{"flavour": "default", "kept": true}
	}))

	h := fx.harness(t, map[string]any{"flavour": "override"}, Overrides{})

	v, err := h.Eval("globals.js", `flavour + "," + kept`)
	require.NoError(t, err)
	assert.Equal(t, "override,true", v.String())
}

func TestRequireErrorsUnchanged(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"broken.js": `throw new Error("boom");`,
	})
	h := fx.harness(t, nil, Overrides{})

	_, err := h.Require("missing")
	var notFound *loader.ModuleNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ID)
	assert.Equal(t, caller.ID, notFound.From)

	_, err = h.Require("broken")
	var exc *goja.Exception
	require.ErrorAs(t, err, &exc)
	assert.Contains(t, exc.Value().String(), "boom")

	_, err = h.Require("../../../outside")
	assert.ErrorIs(t, err, loader.ErrInvalidID)
}

func TestTeardownPropagation(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"main.js": `require("sdk/system/unload").when(function (reason) { record(reason); });`,
	})

	var reasons []string
	h := fx.harness(t, map[string]any{
		"record": func(reason string) { reasons = append(reasons, reason) },
	}, Overrides{})

	var goReasons []string
	h.OnUnload(func(reason string) { goReasons = append(goReasons, reason) })

	_, err := h.Require("main")
	require.NoError(t, err)

	require.NoError(t, h.Unload("test-reason"))
	assert.Equal(t, []string{"test-reason"}, reasons)
	assert.Equal(t, []string{"test-reason"}, goReasons)
	assert.True(t, h.Unloaded())

	assert.ErrorIs(t, h.Unload("again"), loader.ErrUnloaded)
	assert.Equal(t, []string{"test-reason"}, reasons)

	_, err = h.Require("main")
	assert.ErrorIs(t, err, loader.ErrUnloaded)
}

func TestConstructionFailureRegistersNothing(t *testing.T) {
	tests := []struct {
		name      string
		globals   map[string]any
		overrides Overrides
		field     string
	}{
		{
			name:      "bad path base",
			overrides: Overrides{Paths: map[string]string{"lib": "not a uri"}},
			field:     `paths["lib"]`,
		},
		{
			name:    "bad global name",
			globals: map[string]any{"not an identifier": 1},
			field:   `globals["not an identifier"]`,
		},
		{
			name:      "nil substitute",
			overrides: Overrides{Modules: map[string]any{"x": nil}},
			field:     `modules["x"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, nil)

			h, err := fx.factory.New(caller, tt.globals, nil, tt.overrides)
			require.Error(t, err)
			assert.Nil(t, h)

			var cfgErr *loader.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Empty(t, fx.tracker.Pending())
		})
	}
}

func TestTracking(t *testing.T) {
	fx := newFixture(t, nil)

	h, err := fx.factory.New(caller, nil, nil, Overrides{})
	require.NoError(t, err)

	assert.Regexp(t, `^hns_[0-9A-Z]{26}$`, h.Key())
	assert.Equal(t, []string{h.Key()}, fx.tracker.Pending())

	require.NoError(t, h.Unload("done"))
	assert.Empty(t, fx.tracker.Pending())
}

func TestSweepUnloadsLeakedHarness(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"main.js": `require("sdk/system/unload").when(function (reason) { record(reason); });`,
	})

	var reasons []string
	h, err := fx.factory.New(caller, map[string]any{
		"record": func(reason string) { reasons = append(reasons, reason) },
	}, nil, Overrides{})
	require.NoError(t, err)
	_, err = h.Require("main")
	require.NoError(t, err)

	assert.Equal(t, 1, fx.tracker.Sweep("leaked"))
	assert.True(t, h.Unloaded())
	assert.Equal(t, []string{"leaked"}, reasons)
	assert.Empty(t, fx.tracker.Pending())
}

func TestTrackerFailureDoesNotFailConstruction(t *testing.T) {
	logger, logs := testutil.NewObservedLogger(zapcore.WarnLevel)
	tracker := lifecycle.NewTracker()
	tracker.Close("closed early")

	f := NewFactory(WithTracker(tracker), WithLogger(logger))

	h, err := f.New(caller, nil, nil, Overrides{})
	require.NoError(t, err)
	require.NotNil(t, h)
	defer h.Unload("done")

	entries := logs.FilterMessage("harness not tracked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, h.Key(), entries[0].ContextMap()["harness"])

	var tracked []string
	for _, e := range entries {
		if err, ok := e.ContextMap()["error"].(string); ok {
			tracked = append(tracked, err)
		}
	}
	assert.Equal(t, []string{lifecycle.ErrTrackerClosed.Error()}, tracked)
}

func TestPreload(t *testing.T) {
	files := map[string]string{
		"lib/a.js": `exports.a = true;`,
		"lib/b.js": `exports.b = require("./a").a;`,
	}
	profile := &config.Profile{
		Options: testutil.Options(t, files),
		Preload: []string{"lib/a", "lib/b"},
	}
	fx := newFixture(t, nil, WithProfile(profile))

	h := fx.harness(t, nil, Overrides{})
	assert.Equal(t, []string{"lib/a", "lib/b"}, h.PreloadSet())
	require.NoError(t, h.Preload())
	assert.Equal(t, []string{testutil.TestRoot + "lib/a.js", testutil.TestRoot + "lib/b.js"}, h.Loaded())

	profile.Preload = []string{"lib/a", "lib/missing"}
	fx = newFixture(t, nil, WithProfile(profile))
	h = fx.harness(t, nil, Overrides{})

	err := h.Preload()
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrModuleNotFound))
	assert.Contains(t, err.Error(), `preload "lib/missing"`)
}

func TestLoaderMetrics(t *testing.T) {
	fx := newFixture(t, map[string]string{"main.js": `exports.x = 1;`})
	h := fx.harness(t, nil, Overrides{})

	_, err := h.Require("main")
	require.NoError(t, err)

	assertCounter(t, 1, fx.metrics.LoadersTotal)
	assertCounter(t, 1, fx.metrics.ModulesLoaded.WithLabelValues(monitoring.SourceModule))
}

func TestDefaultFactory(t *testing.T) {
	assert.Same(t, Default(), Default())

	h, err := New(caller, nil, nil, Overrides{ID: "ldr_package_level"})
	require.NoError(t, err)
	assert.Equal(t, "ldr_package_level", h.ID)
	assert.Contains(t, lifecycle.Default().Pending(), h.Key())

	require.NoError(t, h.Unload("done"))
	assert.NotContains(t, lifecycle.Default().Pending(), h.Key())
}

func TestConfiguredFactoryFallsBack(t *testing.T) {
	cfg := config.Default()
	cfg.Loader.Root = filepath.Join(t.TempDir(), "missing")

	t.Run("default profile", func(t *testing.T) {
		logger, logs := testutil.NewObservedLogger(zapcore.WarnLevel)

		f := newConfiguredFactory(cfg, logger)
		require.NotNil(t, f)
		assert.Equal(t, "sdk", f.defaults().Name)
		assert.Equal(t, 1, logs.FilterMessage("invalid loader profile, using defaults").Len())
	})

	t.Run("no profile", func(t *testing.T) {
		saved := fallbackProfile
		t.Cleanup(func() { fallbackProfile = saved })
		fallbackProfile = func() (*config.Profile, error) {
			return nil, errors.New("working directory unreadable")
		}
		logger, logs := testutil.NewObservedLogger(zapcore.WarnLevel)

		var f *Factory
		require.NotPanics(t, func() { f = newConfiguredFactory(cfg, logger) })
		assert.Empty(t, f.defaults().Paths)
		assert.Equal(t, 1, logs.FilterMessage("default loader profile unavailable").Len())
	})
}

func TestWithNilProfileKeepsDefaults(t *testing.T) {
	f := NewFactory(WithProfile(nil))
	assert.Equal(t, loader.Options{}, f.defaults())
}
