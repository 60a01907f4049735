// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state and transport open count
//   - Connect errors and persistent connect failures
//   - Events dispatched and listener failures per event name
//
// A nil *Metrics is valid and records nothing.
package metrics
