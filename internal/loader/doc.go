/*
Package loader implements the module-loading runtime driven by the test harness.

# Overview

A Loader is an isolated CommonJS-style module system on top of one goja
runtime. Each instance owns:

  - a module registry keyed by URI
  - a sandbox registry keyed by URI, one sandbox per executed module
  - a resolution mapping from module id prefixes to URI bases
  - a substitution table mapping module ids to stand-in implementations
  - the global bindings visible to every module it executes

# Resolution

Requirements are resolved in two steps. Resolve turns the id a module asked
for into a canonical module id, relative to the requiring module:

	l.Resolve("./util", "sdk/tabs/main") // "sdk/tabs/util"

ResolveURI maps that id to a URI through the longest matching prefix:

	ResolveURI("sdk/tabs/util", mapping) // "resource://sdk/tabs/util.js"

Substituted ids never reach ResolveURI.

# Teardown

Unload notifies every registered listener with the reason, newest first,
then drops the registries. Modules subscribe from JavaScript through the
built-in sdk/system/unload module:

	require("sdk/system/unload").when(function (reason) { ... });

A Loader is not safe for concurrent use.
*/
package loader
