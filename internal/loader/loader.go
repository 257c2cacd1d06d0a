package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/shared/utils"
)

// UnloadModuleID is the built-in module exposing unload notifications.
const UnloadModuleID = "sdk/system/unload"

const (
	wrapperHead = "(function (exports, module, require) {"
	wrapperTail = "\n})"
)

// Loader is an isolated module system backed by a single goja runtime.
type Loader struct {
	ID   string
	Name string

	vm        *goja.Runtime
	mapping   Mapping
	source    Fetcher
	globals   map[string]any
	overrides map[string]any

	modules     map[string]*Module
	sandboxes   map[string]*Sandbox
	substituted map[string]goja.Value
	listeners   []func(reason string)
	unloaded    bool

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// Option configures a Loader at construction.
type Option func(*Loader)

// WithLogger sets the logger the loader reports lifecycle events to.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(l *Loader) {
		l.metrics = metrics
	}
}

// New builds a loader instance from opts. A malformed configuration is
// returned as a *ConfigError and no instance is created.
func New(opts Options, options ...Option) (*Loader, error) {
	l := &Loader{
		logger: logging.NewNop(),
	}
	for _, opt := range options {
		opt(l)
	}

	if err := opts.Validate(); err != nil {
		l.metrics.LoaderRejected()
		return nil, err
	}

	l.ID = opts.ID
	if l.ID == "" {
		l.ID = id.NewLoaderID().String()
	}
	l.Name = opts.Name
	l.mapping = NewMapping(opts.Paths)
	l.source = opts.Source
	l.globals = cloneMap(opts.Globals)
	l.overrides = cloneMap(opts.Modules)
	if l.overrides == nil {
		l.overrides = make(map[string]any)
	}
	if _, ok := l.overrides[UnloadModuleID]; !ok {
		l.overrides[UnloadModuleID] = ModuleFactory(unloadModule)
	}
	l.modules = make(map[string]*Module)
	l.sandboxes = make(map[string]*Sandbox)
	l.substituted = make(map[string]goja.Value)
	l.logger = l.logger.ForLoader(l.ID).Named("loader")

	l.vm = goja.New()
	l.vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	for name, value := range l.globals {
		if err := l.vm.Set(name, value); err != nil {
			l.metrics.LoaderRejected()
			return nil, &ConfigError{Field: fmt.Sprintf("globals[%q]", name), Message: err.Error()}
		}
	}

	l.metrics.LoaderCreated()
	l.logger.Debug("loader created",
		zap.String("name", l.Name),
		zap.Int("globals", len(l.globals)),
		zap.Int("substitutions", len(l.overrides)))

	return l, nil
}

// Runtime returns the goja runtime modules of this instance execute in.
func (l *Loader) Runtime() *goja.Runtime {
	return l.vm
}

// Mapping returns the resolution mapping of this instance.
func (l *Loader) Mapping() Mapping {
	return l.mapping
}

// Resolve returns the canonical id of id required from the module fromID.
func (l *Loader) Resolve(id, fromID string) (string, error) {
	return Resolve(id, fromID)
}

// Require resolves id relative to from and returns the module's exports,
// loading the module on first use. Errors thrown while executing module
// code are returned as *goja.Exception.
func (l *Loader) Require(from *Module, id string) (goja.Value, error) {
	if l.unloaded {
		return nil, ErrUnloaded
	}

	fromID := ""
	if from != nil {
		fromID = from.ID
	}

	requirement, err := l.Resolve(id, fromID)
	if err != nil {
		return nil, err
	}

	if impl, ok := l.overrides[requirement]; ok {
		return l.substitute(requirement, impl)
	}

	uri, ok := ResolveURI(requirement, l.mapping)
	if !ok {
		l.metrics.ModuleFailed()
		return nil, &ModuleNotFoundError{ID: requirement, From: fromID}
	}

	if module, ok := l.modules[uri]; ok {
		return module.Exports(), nil
	}

	return l.load(requirement, fromID, uri)
}

// substitute returns the exports of a substituted module, building them on
// first use.
func (l *Loader) substitute(requirement string, impl any) (goja.Value, error) {
	if v, ok := l.substituted[requirement]; ok {
		return v, nil
	}

	var (
		exports goja.Value
		err     error
	)
	switch v := impl.(type) {
	case ModuleFactory:
		exports, err = v(l.vm, l)
	case func(*goja.Runtime, *Loader) (goja.Value, error):
		exports, err = v(l.vm, l)
	case goja.Value:
		exports = v
	default:
		exports = l.vm.ToValue(v)
	}
	if err != nil {
		l.metrics.ModuleFailed()
		return nil, fmt.Errorf("build substitute %q: %w", requirement, err)
	}

	l.substituted[requirement] = exports
	l.metrics.ModuleLoaded(monitoring.SubstituteModule)
	l.logger.Debug("substitute loaded", zap.String("id", requirement))
	return exports, nil
}

// load fetches, compiles and executes a module in a new sandbox. The module
// and its sandbox are registered before execution so cyclic requirements
// observe partial exports.
func (l *Loader) load(requirement, fromID, uri string) (goja.Value, error) {
	if l.source == nil {
		l.metrics.ModuleFailed()
		return nil, &ModuleNotFoundError{ID: requirement, From: fromID, URI: uri, Err: ErrNoSource}
	}

	src, err := l.source.Fetch(uri)
	if err != nil {
		l.metrics.ModuleFailed()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ModuleNotFoundError{ID: requirement, From: fromID, URI: uri, Err: err}
		}
		return nil, fmt.Errorf("fetch %s: %w", uri, err)
	}

	body := string(src)
	if strings.HasSuffix(uri, ".json") {
		body = "module.exports = " + body + ";"
	}

	prog, err := goja.Compile(uri, wrapperHead+body+wrapperTail, false)
	if err != nil {
		l.metrics.ModuleFailed()
		return nil, err
	}

	module := &Module{ID: requirement, URI: uri, object: l.vm.NewObject()}
	exports := l.vm.NewObject()
	_ = module.object.Set("id", requirement)
	_ = module.object.Set("uri", uri)
	_ = module.object.Set("exports", exports)

	sandbox := newSandbox(l.vm, module, src)
	l.modules[uri] = module
	l.sandboxes[uri] = sandbox

	// Unregister on error and on a Go panic unwinding through the module.
	loaded := false
	defer func() {
		if !loaded {
			delete(l.modules, uri)
			delete(l.sandboxes, uri)
			l.metrics.ModuleFailed()
		}
	}()

	if err := l.execute(prog, sandbox, exports); err != nil {
		return nil, err
	}
	loaded = true

	l.metrics.ModuleLoaded(monitoring.SourceModule)
	l.logger.Debug("module loaded",
		zap.String("id", requirement),
		zap.String("uri", uri),
		zap.String("digest", utils.Short(sandbox.Digest)))
	return module.Exports(), nil
}

func (l *Loader) execute(prog *goja.Program, sandbox *Sandbox, exports *goja.Object) error {
	wrapper, err := l.vm.RunProgram(prog)
	if err != nil {
		return err
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return fmt.Errorf("module %s: wrapper is not callable", sandbox.URI)
	}
	_, err = fn(sandbox.scope, exports, sandbox.Module.object, l.vm.ToValue(l.requireFunc(sandbox.Module)))
	return err
}

// requireFunc returns the require() bound inside module.
func (l *Loader) requireFunc(module *Module) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		v, err := l.Require(module, call.Argument(0).String())
		if err != nil {
			var ex *goja.Exception
			if errors.As(err, &ex) {
				panic(ex)
			}
			panic(l.vm.NewGoError(err))
		}
		return v
	}
}

// LookupSandbox returns the sandbox registered for uri, or nil when no
// module has been loaded from it.
func (l *Loader) LookupSandbox(uri string) *Sandbox {
	return l.sandboxes[uri]
}

// Sandboxes returns a snapshot of the sandbox registry keyed by URI.
func (l *Loader) Sandboxes() map[string]*Sandbox {
	return cloneMap(l.sandboxes)
}

// Loaded returns the URIs of every module executed so far, sorted.
func (l *Loader) Loaded() []string {
	uris := make([]string, 0, len(l.modules))
	for uri := range l.modules {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Eval runs src as a script in the global scope of the instance.
func (l *Loader) Eval(name, src string) (goja.Value, error) {
	if l.unloaded {
		return nil, ErrUnloaded
	}
	return l.vm.RunScript(name, src)
}

// OnUnload registers fn to be notified with the teardown reason.
func (l *Loader) OnUnload(fn func(reason string)) {
	l.listeners = append(l.listeners, fn)
}

// Unloaded reports whether the instance was torn down.
func (l *Loader) Unloaded() bool {
	return l.unloaded
}

// Unload notifies unload listeners, newest first, and releases every module
// and sandbox. Unloading an instance twice returns ErrUnloaded without
// notifying anyone.
func (l *Loader) Unload(reason string) error {
	if l.unloaded {
		return ErrUnloaded
	}
	l.unloaded = true

	listeners := l.listeners
	l.listeners = nil
	for i := len(listeners) - 1; i >= 0; i-- {
		listeners[i](reason)
	}

	l.modules = make(map[string]*Module)
	l.sandboxes = make(map[string]*Sandbox)
	l.substituted = make(map[string]goja.Value)

	l.metrics.LoaderUnloaded(reason)
	l.logger.Debug("loader unloaded",
		zap.String("reason", reason),
		zap.Int("listeners", len(listeners)))
	return nil
}
