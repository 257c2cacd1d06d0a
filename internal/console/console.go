// Package console provides the diagnostic-output globals installed in loader
// instances: the message kinds, argument formatting, the plain-text console
// formatter and the zap-backed default console.
package console

import (
	"strings"

	"github.com/dop251/goja"
)

// Kind is a diagnostic level.
type Kind string

const (
	KindLog       Kind = "log"
	KindInfo      Kind = "info"
	KindWarn      Kind = "warn"
	KindError     Kind = "error"
	KindDebug     Kind = "debug"
	KindException Kind = "exception"
)

// Kinds lists every diagnostic level in declaration order.
var Kinds = []Kind{KindLog, KindInfo, KindWarn, KindError, KindDebug, KindException}

// Message is one captured diagnostic call.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Format renders call arguments the way they read in a console: each
// argument converted with its JavaScript string conversion, space separated.
func Format(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatValue(arg))
	}
	return strings.Join(parts, " ")
}

func formatValue(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// FormatException renders an exception argument, preferring the stack
// JavaScript attaches to Error objects.
func FormatException(args []goja.Value) string {
	if len(args) == 1 {
		if obj, ok := args[0].(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) && stack.String() != "" {
				return strings.TrimRight(stack.String(), "\n")
			}
		}
	}
	return Format(args)
}
