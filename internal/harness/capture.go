package harness

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/console"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
)

// Capture is an append-only sequence of captured output, in emission order.
type Capture[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *Capture[T]) append(v T) {
	c.mu.Lock()
	c.items = append(c.items, v)
	c.mu.Unlock()
}

// All returns a snapshot of everything captured so far.
func (c *Capture[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of captured entries.
func (c *Capture[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// HookedConsole is a console global that hands every call to a hook.
type HookedConsole struct {
	hook func(kind console.Kind, args []goja.Value)
}

// NewHookedConsole returns a console calling hook once per diagnostic call.
func NewHookedConsole(hook func(kind console.Kind, args []goja.Value)) *HookedConsole {
	return &HookedConsole{hook: hook}
}

func (c *HookedConsole) Log(args ...goja.Value)       { c.hook(console.KindLog, args) }
func (c *HookedConsole) Info(args ...goja.Value)      { c.hook(console.KindInfo, args) }
func (c *HookedConsole) Warn(args ...goja.Value)      { c.hook(console.KindWarn, args) }
func (c *HookedConsole) Error(args ...goja.Value)     { c.hook(console.KindError, args) }
func (c *HookedConsole) Debug(args ...goja.Value)     { c.hook(console.KindDebug, args) }
func (c *HookedConsole) Exception(args ...goja.Value) { c.hook(console.KindException, args) }

// Hooked is a harness whose console records structured messages.
type Hooked struct {
	*Harness
	Messages *Capture[console.Message]
}

// PlainTextHooked is a harness whose console records printed lines.
type PlainTextHooked struct {
	*Harness
	Messages *Capture[string]
}

// plainTextKind labels captured lines in metrics.
const plainTextKind = "plain"

// observerGuard rethrows an observer's Go panic into the runtime the console
// is installed in, so the module that made the diagnostic call sees an
// exception it can catch.
type observerGuard struct {
	vm *goja.Runtime
}

func (g *observerGuard) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.rethrow(r)
		}
	}()
	fn()
}

func (g *observerGuard) rethrow(r any) {
	if g.vm == nil {
		panic(r)
	}
	switch v := r.(type) {
	case goja.Value, *goja.Exception:
		panic(v)
	case error:
		panic(g.vm.NewGoError(v))
	default:
		panic(g.vm.NewGoError(fmt.Errorf("%v", v)))
	}
}

// NewWithHookedConsole builds a harness whose console appends a
// console.Message per call and then hands kind and text to observer, when
// one is given. A panic in observer is thrown into the calling module as an
// exception.
func (f *Factory) NewWithHookedConsole(caller *loader.Module, observer func(kind console.Kind, text string)) (*Hooked, error) {
	messages := &Capture[console.Message]{}
	guard := &observerGuard{}
	hook := func(kind console.Kind, args []goja.Value) {
		text := console.Format(args)
		messages.append(console.Message{Kind: kind, Text: text})
		f.metrics.MessageCaptured(string(kind))
		if observer != nil {
			guard.call(func() { observer(kind, text) })
		}
	}

	h, err := f.New(caller, map[string]any{"console": NewHookedConsole(hook)}, nil, Overrides{})
	if err != nil {
		return nil, err
	}
	guard.vm = h.Runtime()
	return &Hooked{Harness: h, Messages: messages}, nil
}

// NewWithPlainTextConsole builds a harness whose console records the exact
// lines a text console would print, named after the default loader name,
// and hands each to observer, when one is given. Observer panics are thrown
// into the calling module as with NewWithHookedConsole.
func (f *Factory) NewWithPlainTextConsole(caller *loader.Module, observer func(line string)) (*PlainTextHooked, error) {
	messages := &Capture[string]{}
	guard := &observerGuard{}
	emit := func(line string) {
		messages.append(line)
		f.metrics.MessageCaptured(plainTextKind)
		if observer != nil {
			guard.call(func() { observer(line) })
		}
	}

	name := f.defaults().Name
	h, err := f.New(caller, map[string]any{"console": console.NewPlainText(emit, name)}, nil, Overrides{})
	if err != nil {
		return nil, err
	}
	guard.vm = h.Runtime()
	return &PlainTextHooked{Harness: h, Messages: messages}, nil
}

// NewWithHookedConsole builds a structured-capture harness from the default
// factory.
func NewWithHookedConsole(caller *loader.Module, observer func(kind console.Kind, text string)) (*Hooked, error) {
	return Default().NewWithHookedConsole(caller, observer)
}

// NewWithPlainTextConsole builds a plain-text-capture harness from the
// default factory.
func NewWithPlainTextConsole(caller *loader.Module, observer func(line string)) (*PlainTextHooked, error) {
	return Default().NewWithPlainTextConsole(caller, observer)
}
