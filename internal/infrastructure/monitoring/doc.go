/*
Package monitoring provides Prometheus metrics for loader and harness instances.

# Overview

Every loader instance, module load, captured console message, teardown and
leak sweep is counted so long test runs can be checked for instances that
were never released.

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	metrics.LoaderCreated()
	metrics.ModuleLoaded(monitoring.SourceModule)
	metrics.LoaderUnloaded("shutdown")

All recording methods are safe on a nil *Metrics, so collaborators may be
constructed without metrics.

# Registries

Default() registers against prometheus.DefaultRegisterer once per process.
Tests should pass their own registry to NewMetrics to avoid duplicate
registration panics.
*/
package monitoring
