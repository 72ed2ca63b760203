// Package sinks implements concrete progress consumers: structured logging and
// Prometheus counters. Each sink satisfies progress.Emitter and is safe for
// concurrent use.
package sinks
