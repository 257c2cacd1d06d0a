package harness

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/lifecycle"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
)

// Harness is a loader instance extended with operations scoped to the module
// that asked for it. Every loader field and method stays reachable.
type Harness struct {
	*loader.Loader

	caller  *loader.Module
	key     string
	preload []string
	tracker *lifecycle.Tracker
}

// Key returns the key the harness is tracked under.
func (h *Harness) Key() string { return h.key }

// Caller returns the module the harness resolves ids against.
func (h *Harness) Caller() *loader.Module { return h.caller }

func (h *Harness) callerID() string {
	if h.caller == nil {
		return ""
	}
	return h.caller.ID
}

// Require loads id relative to the caller and returns its exports. Errors
// from resolution or execution are returned unchanged.
func (h *Harness) Require(id string) (goja.Value, error) {
	return h.Loader.Require(h.caller, id)
}

// Sandbox returns the sandbox the module id was executed in, or nil when it
// has not been loaded through this instance. The id is resolved afresh on
// every call.
func (h *Harness) Sandbox(id string) *loader.Sandbox {
	requirement, err := h.Resolve(id, h.callerID())
	if err != nil {
		return nil
	}
	uri, ok := loader.ResolveURI(requirement, h.Mapping())
	if !ok {
		return nil
	}
	return h.LookupSandbox(uri)
}

// Unload tears the instance down with reason and stops tracking it.
// Repeated calls are passed through to the loader.
func (h *Harness) Unload(reason string) error {
	err := h.Loader.Unload(reason)
	h.tracker.Release(h.key)
	return err
}

// Preload requires every module in the preload set, stopping at the first
// failure.
func (h *Harness) Preload() error {
	for _, id := range h.preload {
		if _, err := h.Require(id); err != nil {
			return fmt.Errorf("preload %q: %w", id, err)
		}
	}
	return nil
}

// PreloadSet returns the module ids Preload requires.
func (h *Harness) PreloadSet() []string {
	return append([]string(nil), h.preload...)
}
