// Package episodic persists protocol execution episodes so that selection
// history survives beyond the in-memory bandit statistics.
//
// A Sink receives one Record per executed protocol. Implementations cover an
// embedded vector store (chromem-go), a NATS subject for external consumers,
// an in-memory buffer for tests, and a no-op for deployments that do not
// keep history.
package episodic
