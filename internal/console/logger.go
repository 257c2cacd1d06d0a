package console

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/logging"
)

// Logger is the default console of a loader instance: every call becomes a
// structured log entry on the process logger.
type Logger struct {
	logger *logging.Logger
}

// NewLogger returns a console writing to logger.
func NewLogger(logger *logging.Logger) *Logger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Logger{logger: logger.Named("console")}
}

func (c *Logger) write(kind Kind, text string) {
	field := zap.String("kind", string(kind))
	switch kind {
	case KindDebug:
		c.logger.Debug(text, field)
	case KindWarn:
		c.logger.Warn(text, field)
	case KindError, KindException:
		c.logger.Error(text, field)
	default:
		c.logger.Info(text, field)
	}
}

func (c *Logger) Log(args ...goja.Value)       { c.write(KindLog, Format(args)) }
func (c *Logger) Info(args ...goja.Value)      { c.write(KindInfo, Format(args)) }
func (c *Logger) Warn(args ...goja.Value)      { c.write(KindWarn, Format(args)) }
func (c *Logger) Error(args ...goja.Value)     { c.write(KindError, Format(args)) }
func (c *Logger) Debug(args ...goja.Value)     { c.write(KindDebug, Format(args)) }
func (c *Logger) Exception(args ...goja.Value) { c.write(KindException, FormatException(args)) }
