package loader

import (
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/shared/utils"
)

var sourceHasher = utils.DefaultHasher()

// Module is a module identity, either a loaded module or the caller a
// harness resolves relative to. Callers only need to set ID.
type Module struct {
	ID  string
	URI string

	object *goja.Object
}

// Exports returns the module's current exports, or undefined for a module
// that was never executed.
func (m *Module) Exports() goja.Value {
	if m == nil || m.object == nil {
		return goja.Undefined()
	}
	return m.object.Get("exports")
}

// Sandbox is the execution context created for one module URI.
type Sandbox struct {
	ID        string
	URI       string
	Module    *Module
	CreatedAt time.Time
	// Digest is the SHA-256 of the source the module was compiled from.
	Digest string

	scope *goja.Object
}

func newSandbox(vm *goja.Runtime, module *Module, src []byte) *Sandbox {
	return &Sandbox{
		ID:        uuid.NewString(),
		URI:       module.URI,
		Module:    module,
		CreatedAt: time.Now(),
		Digest:    sourceHasher.Hash(src),
		scope:     vm.NewObject(),
	}
}

// Scope is the object bound to `this` at the top level of the module.
func (s *Sandbox) Scope() *goja.Object {
	return s.scope
}

// Get reads a binding the module published on its top-level `this`.
func (s *Sandbox) Get(name string) goja.Value {
	v := s.scope.Get(name)
	if v == nil {
		return goja.Undefined()
	}
	return v
}
