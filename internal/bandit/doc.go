// Package bandit implements the exploration/exploitation strategies that
// pick one protocol out of the matching subset.
//
// Four interchangeable strategies share the Strategy contract: epsilon-
// greedy, UCB1, Thompson sampling, and a contextual linear bandit. The
// Adaptive meta-controller holds all four with independent statistics and
// switches the active one based on rolling performance windows.
//
// All randomness flows through an injected rand source so stochastic
// behavior is reproducible under a fixed seed.
package bandit
