package harness

import "github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"

// Overrides is a partial loader configuration layered over a base one.
// Empty strings and nil maps mean "keep the base value".
type Overrides struct {
	ID      string
	Name    string
	Paths   map[string]string
	Globals map[string]any
	Modules map[string]any
}

// Merge returns base with o layered on top. Scalars are replaced when set;
// Paths, Globals and Modules are merged one level deep into fresh maps, with
// values from o winning. Neither argument is modified.
func Merge(base loader.Options, o Overrides) loader.Options {
	out := base
	if o.ID != "" {
		out.ID = o.ID
	}
	if o.Name != "" {
		out.Name = o.Name
	}
	out.Paths = mergeMaps(base.Paths, o.Paths)
	out.Globals = mergeMaps(base.Globals, o.Globals)
	out.Modules = mergeMaps(base.Modules, o.Modules)
	return out
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
