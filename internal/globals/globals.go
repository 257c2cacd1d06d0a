// Package globals provides the process-wide default global bindings every
// loader instance starts from.
package globals

import (
	"strings"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/console"
	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
)

// Defaults returns a fresh set of default globals writing to logger:
//
//	console  structured console backed by the logger
//	dump     raw debug output, trailing newline trimmed
func Defaults(logger *logging.Logger) map[string]any {
	if logger == nil {
		logger = logging.NewNop()
	}
	dumpLogger := logger.Named("dump")

	return map[string]any{
		"console": console.NewLogger(logger),
		"dump": func(msg string) {
			dumpLogger.Debug(strings.TrimRight(msg, "\n"))
		},
	}
}
