package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrUnloaded is returned by operations on a loader that was torn down.
	ErrUnloaded = errors.New("loader has been unloaded")

	// ErrInvalidID is returned for ids that are empty or escape the root.
	ErrInvalidID = errors.New("invalid module id")

	// ErrModuleNotFound matches every *ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")

	// ErrNoSource is wrapped when a loader has no Fetcher configured.
	ErrNoSource = errors.New("no module source configured")
)

// ConfigError reports a malformed loader configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid loader config: %s: %s", e.Field, e.Message)
}

// ModuleNotFoundError reports a requirement that could not be mapped or fetched.
type ModuleNotFoundError struct {
	ID   string // resolved module id
	From string // id of the requiring module
	URI  string // empty when the id did not map to a URI
	Err  error
}

func (e *ModuleNotFoundError) Error() string {
	msg := fmt.Sprintf("module %q not found", e.ID)
	if e.From != "" {
		msg += fmt.Sprintf(" (required from %q)", e.From)
	}
	if e.URI != "" {
		msg += " at " + e.URI
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModuleNotFoundError) Unwrap() error { return e.Err }

func (e *ModuleNotFoundError) Is(target error) bool { return target == ErrModuleNotFound }
