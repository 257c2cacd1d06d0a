// Package harness creates isolated, disposable loader instances for tests.
//
// A Factory merges a base configuration with test overrides, builds a new
// loader.Loader from the result and wraps it in a Harness whose Require,
// Sandbox and Unload operations are scoped to the calling module. Every
// harness is registered with a lifecycle.Tracker so instances a test forgets
// to unload can be swept later.
//
// Two capture helpers replace the console global of the new instance:
// NewWithHookedConsole records {kind, text} messages and NewWithPlainTextConsole
// records the exact lines a text console would print.
//
// Example Usage:
//
//	h, err := harness.New(caller, nil, nil, harness.Overrides{ID: "ldr_test"})
//	if err != nil {
//		return err
//	}
//	defer h.Unload("test done")
//	exports, err := h.Require("./fixture")
package harness
