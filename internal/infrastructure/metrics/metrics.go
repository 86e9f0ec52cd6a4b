package metrics

import (
	"expvar"
	"sort"
)

// Per-node counters keyed by node ID.
var (
	nodeExecs    = expvar.NewMap("csagent_node_executions_total")
	nodeFailures = expvar.NewMap("csagent_node_failures_total")
)

// Runtime and client counters.
var (
	stepsTotal       = new(expvar.Int)
	llmCallsTotal    = new(expvar.Int)
	llmErrorsTotal   = new(expvar.Int)
	searchCallsTotal = new(expvar.Int)
	checkpointsSaved = new(expvar.Int)
	revisionsTotal   = new(expvar.Int)
)

var published = map[string]*expvar.Int{
	"csagent_steps_total":             stepsTotal,
	"csagent_llm_calls_total":         llmCallsTotal,
	"csagent_llm_errors_total":        llmErrorsTotal,
	"csagent_search_calls_total":      searchCallsTotal,
	"csagent_checkpoints_saved_total": checkpointsSaved,
	"csagent_revisions_total":         revisionsTotal,
}

func init() {
	for name, v := range published {
		expvar.Publish(name, v)
	}
}

func IncSteps()            { stepsTotal.Add(1) }
func IncLLMCalls()         { llmCallsTotal.Add(1) }
func IncLLMErrors()        { llmErrorsTotal.Add(1) }
func IncSearchCalls()      { searchCallsTotal.Add(1) }
func IncCheckpointsSaved() { checkpointsSaved.Add(1) }
func IncRevisions()        { revisionsTotal.Add(1) }

// NodeExecuted records one execution of nodeID, failed or not.
func NodeExecuted(nodeID string, err error) {
	nodeExecs.Add(nodeID, 1)
	if err != nil {
		nodeFailures.Add(nodeID, 1)
	}
}

// NodeExecutions returns the execution count for nodeID.
func NodeExecutions(nodeID string) int64 {
	if v, ok := nodeExecs.Get(nodeID).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// Snapshot returns the current counter values as slog-friendly key/value
// pairs, scalar counters first, sorted by name.
func Snapshot() []any {
	names := make([]string, 0, len(published))
	for name := range published {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, 2*len(names)+2)
	for _, name := range names {
		out = append(out, name, published[name].Value())
	}
	nodes := map[string]int64{}
	nodeExecs.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			nodes[kv.Key] = v.Value()
		}
	})
	return append(out, "csagent_node_executions_total", nodes)
}
