// Package query declares the build graph: the inputs a schema runtime and
// the task resolvers write, and the memoized queries computed from them.
//
// Queries are declared as package variables and are assigned in init so
// that they may call each other recursively. Every query is pure. Queries
// that need a file walk, a binary lookup or a transform run push the
// corresponding task and report graph.ErrPending; the scheduler executes
// the task and commits its result with one of the Commit functions.
package query
