// Package observe provides telemetry for the storefront state layer.
//
// It bundles a structured JSON logger, an OpenTelemetry tracer and meter with
// stdout or noop exporters, and pre-declared counters for store mutations and
// cache lookups. A client-resident library must never open collector sockets,
// so stdout and none are the only exporter choices.
package observe
