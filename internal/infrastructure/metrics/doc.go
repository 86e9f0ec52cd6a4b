// Package metrics exposes expvar-published counters for the agent runtime:
// graph steps, node executions, model and search calls, checkpoints, and
// drafted revisions. Values are visible under /debug/vars when a process
// serves expvar, and Snapshot feeds the debug log line written after a run.
package metrics
