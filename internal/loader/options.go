package loader

import (
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// Options is the configuration a Loader is built from.
type Options struct {
	// ID is the instance identity. Empty means a generated ldr_<ulid>.
	ID string

	// Name labels the instance in console output.
	Name string

	// Paths maps module id prefixes to URI bases. The "" prefix matches
	// every id.
	Paths map[string]string

	// Globals are bound on the global object of the instance and are
	// visible inside every module it executes.
	Globals map[string]any

	// Modules substitutes module ids with stand-in implementations. Values
	// may be a ModuleFactory, a goja.Value or any Go value.
	Modules map[string]any

	// Source fetches module source by URI.
	Source Fetcher
}

// ModuleFactory builds the exports of a substituted module inside the
// runtime of the loader that requires it. It runs at most once per loader.
type ModuleFactory func(vm *goja.Runtime, l *Loader) (goja.Value, error)

// Fetcher returns module source for a URI.
type Fetcher interface {
	Fetch(uri string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(uri string) ([]byte, error)

// Fetch calls f(uri).
func (f FetcherFunc) Fetch(uri string) ([]byte, error) {
	return f(uri)
}

// FSSource serves module source from a file system. The URI host acts as a
// namespace only; the URI path is looked up in FS.
type FSSource struct {
	FS fs.FS
}

// FSFetcher returns a Fetcher reading from fsys.
func FSFetcher(fsys fs.FS) *FSSource {
	return &FSSource{FS: fsys}
}

// Fetch reads the file named by the URI path.
func (s *FSSource) Fetch(uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", uri, err)
	}
	return fs.ReadFile(s.FS, strings.TrimPrefix(u.Path, "/"))
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate reports the first malformed field of o as a *ConfigError.
func (o Options) Validate() error {
	if strings.ContainsAny(o.Name, " \t\r\n") {
		return &ConfigError{Field: "name", Message: fmt.Sprintf("must not contain whitespace: %q", o.Name)}
	}

	for prefix, base := range o.Paths {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" {
			return &ConfigError{
				Field:   fmt.Sprintf("paths[%q]", prefix),
				Message: fmt.Sprintf("not an absolute URI: %q", base),
			}
		}
	}

	for name := range o.Globals {
		if !identifierPattern.MatchString(name) {
			return &ConfigError{
				Field:   fmt.Sprintf("globals[%q]", name),
				Message: "not a valid identifier",
			}
		}
	}

	for id, impl := range o.Modules {
		if id == "" {
			return &ConfigError{Field: "modules", Message: "empty module id"}
		}
		if impl == nil {
			return &ConfigError{
				Field:   fmt.Sprintf("modules[%q]", id),
				Message: "nil substitute",
			}
		}
	}

	return nil
}

// Clone returns a copy of o whose maps can be modified independently.
func (o Options) Clone() Options {
	o.Paths = cloneMap(o.Paths)
	o.Globals = cloneMap(o.Globals)
	o.Modules = cloneMap(o.Modules)
	return o
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
