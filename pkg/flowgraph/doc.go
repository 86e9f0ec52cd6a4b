// Package flowgraph is the public façade over the graph runtime. Callers
// build a Graph, bind node names to functions with RegisterFunc and
// branch routers with RegisterRouter, then Run or Stream it on a thread.
// Every step is checkpointed, so a thread can be inspected with State or
// continued with Resume.
package flowgraph
