// Package window provides the fixed stand-in for the sdk/addon/window module:
// a minimal browser-like window over an in-memory document tree, so code
// written against the add-on window sees the same surface in every loader
// instance.
package window

import (
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
)

const (
	// ModuleID is the module id the stand-in is substituted under.
	ModuleID = "sdk/addon/window"

	// BlankURL is the location every stand-in window reports.
	BlankURL = "about:blank"
)

// Window binds a DOM to a goja runtime.
type Window struct {
	vm       *goja.Runtime
	dom      *DOM
	object   *goja.Object
	proxies  map[*Element]*goja.Object
	elements map[*goja.Object]*Element
}

// Module builds the stand-in exports for one loader instance. The window is
// marked closed when the instance unloads.
func Module(vm *goja.Runtime, l *loader.Loader) (goja.Value, error) {
	w := New(vm, NewDOM())
	if l != nil {
		l.OnUnload(func(string) { w.Close() })
	}

	exports := vm.NewObject()
	if err := exports.Set("window", w.Object()); err != nil {
		return nil, err
	}
	return exports, nil
}

// New returns a window over dom in vm.
func New(vm *goja.Runtime, dom *DOM) *Window {
	w := &Window{
		vm:       vm,
		dom:      dom,
		proxies:  make(map[*Element]*goja.Object),
		elements: make(map[*goja.Object]*Element),
	}
	w.object = w.build()
	return w
}

// DOM returns the document tree behind the window.
func (w *Window) DOM() *DOM { return w.dom }

// Object returns the JavaScript window object.
func (w *Window) Object() *goja.Object { return w.object }

// Close marks the window closed.
func (w *Window) Close() {
	_ = w.object.Set("closed", true)
}

func (w *Window) build() *goja.Object {
	win := w.vm.NewObject()

	location := w.vm.NewObject()
	_ = location.Set("href", BlankURL)
	_ = location.Set("toString", func() string { return BlankURL })

	_ = win.Set("window", win)
	_ = win.Set("self", win)
	_ = win.Set("closed", false)
	_ = win.Set("location", location)
	_ = win.Set("document", w.document())

	// Timers are inert.
	noop := func(goja.FunctionCall) goja.Value { return w.vm.ToValue(0) }
	_ = win.Set("setTimeout", noop)
	_ = win.Set("setInterval", noop)
	_ = win.Set("clearTimeout", noop)
	_ = win.Set("clearInterval", noop)

	return win
}

func (w *Window) document() *goja.Object {
	doc := w.vm.NewObject()

	_ = doc.Set("URL", BlankURL)
	_ = doc.Set("readyState", "complete")
	_ = doc.Set("documentElement", w.proxy(w.dom.Root()))
	_ = doc.Set("body", w.proxy(w.dom.Body()))

	_ = doc.Set("createElement", func(tag string) *goja.Object {
		return w.proxy(NewElement(tag))
	})
	_ = doc.Set("querySelector", w.first)
	_ = doc.Set("getElementById", func(id string) goja.Value {
		return w.first("#" + id)
	})
	_ = doc.Set("querySelectorAll", w.all)
	_ = doc.Set("getElementsByClassName", func(class string) goja.Value {
		return w.all("." + class)
	})
	_ = doc.Set("getElementsByTagName", w.all)

	return doc
}

func (w *Window) first(selector string) goja.Value {
	elements := w.dom.Query(selector)
	if len(elements) == 0 {
		return goja.Null()
	}
	return w.proxy(elements[0])
}

func (w *Window) all(selector string) goja.Value {
	elements := w.dom.Query(selector)
	proxies := make([]any, 0, len(elements))
	for _, elem := range elements {
		proxies = append(proxies, w.proxy(elem))
	}
	return w.vm.NewArray(proxies...)
}

// proxy returns the single JavaScript object standing for elem.
func (w *Window) proxy(elem *Element) *goja.Object {
	if obj, ok := w.proxies[elem]; ok {
		return obj
	}

	obj := w.vm.NewObject()
	w.proxies[elem] = obj
	w.elements[obj] = elem

	w.accessor(obj, "tagName", func() goja.Value { return w.vm.ToValue(elem.TagName) }, nil)
	w.accessor(obj, "id",
		func() goja.Value { return w.vm.ToValue(elem.ID) },
		func(v goja.Value) { w.dom.SetAttribute(elem, "id", v.String()) })
	w.accessor(obj, "className",
		func() goja.Value { return w.vm.ToValue(elem.ClassName) },
		func(v goja.Value) { w.dom.SetAttribute(elem, "class", v.String()) })
	w.accessor(obj, "textContent",
		func() goja.Value { return w.vm.ToValue(elem.TextContent) },
		func(v goja.Value) { w.dom.SetText(elem, v.String()) })
	w.accessor(obj, "parentNode", func() goja.Value {
		if elem.Parent == nil {
			return goja.Null()
		}
		return w.proxy(elem.Parent)
	}, nil)
	w.accessor(obj, "children", func() goja.Value {
		children := make([]any, 0, len(elem.Children))
		for _, child := range elem.Children {
			children = append(children, w.proxy(child))
		}
		return w.vm.NewArray(children...)
	}, nil)

	_ = obj.Set("getAttribute", func(name string) goja.Value {
		if v, ok := elem.GetAttribute(name); ok {
			return w.vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = obj.Set("setAttribute", func(name, value string) {
		w.dom.SetAttribute(elem, name, value)
	})
	_ = obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child, ok := w.elements[call.Argument(0).ToObject(w.vm)]
		if !ok {
			panic(w.vm.NewTypeError("appendChild: argument is not an element"))
		}
		w.dom.Append(elem, child)
		return call.Argument(0)
	})
	_ = obj.Set("remove", func() { w.dom.Remove(elem) })

	return obj
}

func (w *Window) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := w.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	var setter goja.Value
	if set != nil {
		setter = w.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
}
