// Package api hosts the operator HTTP endpoint served alongside a batch run.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the live counters of the current run.
//   - GET /v1/run/failures for the puzzle ids that failed so far.
package api
