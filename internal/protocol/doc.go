// Package protocol defines the behavioral units protocold selects between.
//
// A Protocol pairs a match predicate with an action and carries a learned
// reward score in [0, 5] plus an execution counter. Predicates and actions
// are interfaces bound at construction time; the selection core evaluates
// predicates but never invokes actions itself.
package protocol
