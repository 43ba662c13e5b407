// Package selector wires the protocol registry, the adaptive bandit, the
// reward model, and the maintenance cycles into one service.
//
// The service is the only component callers talk to: it selects a protocol
// for a context, executes it, applies feedback, and runs improvement and
// evolution cycles. Execution episodes are forwarded to an episodic sink
// asynchronously so persistence latency never sits on the request path.
package selector
