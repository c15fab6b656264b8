// Package metrics exposes pretender's Prometheus collectors.
//
// Exported series, all prefixed with pretender_:
//
//   - requests_total{outcome,method}: dispatched requests by outcome
//     (mocked, rejected, forwarded, noise, errored, tunnelled)
//   - request_duration_seconds{outcome}: time from accept to last byte written
//   - upstream_duration_seconds{result}: forwarded exchange latency
//     (ok, timeout, error)
//   - rule_reloads_total{result}: rule file reloads (success, failure)
//   - rules_loaded: rules in the current snapshot
//   - scheduler_queue_depth, scheduler_in_flight: delayed response backlog
//
// Go runtime, process and build info collectors are registered as well.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics
