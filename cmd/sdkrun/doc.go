// Command sdkrun loads modules into a fresh, isolated loader instance and
// prints everything they write to the console, one line per call, in the
// plain-text console format.
//
// Usage:
//
//	sdkrun [flags] module-id...
//
// Flags:
//
//	-root      module root directory or .zip/.xpi pack (SDK_ROOT, default ".")
//	-manifest  manifest file in JSON, YAML or TOML (SDK_MANIFEST)
//	-id        loader instance id (SDK_LOADER_ID)
//	-name      loader name (SDK_LOADER_NAME, default "sdk")
//	-dev       development logging (LOG_DEV)
//	-all       load every module in the manifest preload set
//
// Module ids are resolved against the module root. The exit code is 1 when
// a module fails to load and 2 on usage errors.
package main
