// Package progress provides the event primitives and emitter interfaces the batch
// orchestrator uses to report per-puzzle progress. Emitters are synchronous and
// decoupled from any output destination, so tests can capture events with a
// Recorder while the CLI fans them out to structured logs and Prometheus.
package progress
