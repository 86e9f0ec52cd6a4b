package metrics

import (
	"expvar"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

type meta struct {
	typ, help string
	label     string // set for per-key maps
}

var metas = map[string]meta{
	"csagent_node_executions_total":   {typ: "counter", help: "Node executions, including retries", label: "node"},
	"csagent_node_failures_total":     {typ: "counter", help: "Node executions that returned an error", label: "node"},
	"csagent_steps_total":             {typ: "counter", help: "Graph steps completed"},
	"csagent_llm_calls_total":         {typ: "counter", help: "Chat completion requests sent"},
	"csagent_llm_errors_total":        {typ: "counter", help: "Chat completion requests that failed"},
	"csagent_search_calls_total":      {typ: "counter", help: "Web search requests sent"},
	"csagent_checkpoints_saved_total": {typ: "counter", help: "Checkpoints written"},
	"csagent_revisions_total":         {typ: "counter", help: "Support drafts generated"},
}

// WritePrometheus renders the csagent expvars in Prometheus text format.
// Other integer expvars are written as untyped gauges.
func WritePrometheus(w io.Writer) error {
	names := make([]string, 0, 16)
	expvar.Do(func(kv expvar.KeyValue) {
		names = append(names, kv.Key)
	})
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		v := expvar.Get(name)
		m, known := metas[name]
		if !known {
			if iv, ok := v.(*expvar.Int); ok {
				fmt.Fprintf(&b, "# TYPE %s gauge\n%s %s\n", name, name, iv.String())
			}
			continue
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", name, sanitizeHelp(m.help))
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, m.typ)
		if m.label == "" {
			fmt.Fprintf(&b, "%s %s\n", name, v.String())
			continue
		}
		mp, ok := v.(*expvar.Map)
		if !ok {
			continue
		}
		sub := make([]expvar.KeyValue, 0, 8)
		mp.Do(func(kv expvar.KeyValue) { sub = append(sub, kv) })
		sort.Slice(sub, func(i, j int) bool { return sub[i].Key < sub[j].Key })
		for _, kv := range sub {
			fmt.Fprintf(&b, "%s{%s=\"%s\"} %s\n", name, m.label, escapeLabel(kv.Key), kv.Value.String())
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Handler serves WritePrometheus output
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = WritePrometheus(w)
	})
}

func sanitizeHelp(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// escapeLabel escapes backslash, double-quote and newline
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
