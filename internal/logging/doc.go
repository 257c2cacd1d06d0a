// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Loader instances and harnesses log through child loggers so every line
// carries the instance identity:
//
//	logger := logging.NewDefault()
//	l := logger.ForLoader("ldr_01J...")
//	l.Debug("module loaded", zap.String("uri", uri))
package logging
