// Package metrics defines the usage record reported after every model
// invocation and the hooks that deliver it: structured logs, an in-memory
// recorder, and Redis counters.
package metrics
